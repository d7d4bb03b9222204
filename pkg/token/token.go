// Package token issues and validates the opaque share tokens that address
// links on the viewer-facing path.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// ByteLength is the raw entropy per token: 32 bytes, well above the
// 128-bit guessing floor.
const ByteLength = 32

// EncodedLength is the length of an issued token (lowercase hex).
const EncodedLength = ByteLength * 2

// Issuer generates share tokens from a cryptographic entropy source.
type Issuer struct {
	rand io.Reader
}

// Option configures the issuer.
type Option func(*Issuer)

// WithRand overrides the entropy source. Tests use this to force
// collisions; production code never should.
func WithRand(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.rand = r
		}
	}
}

// NewIssuer builds an issuer backed by crypto/rand.
func NewIssuer(opts ...Option) *Issuer {
	issuer := &Issuer{rand: rand.Reader}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer
}

// Issue produces a new random, URL-safe token.
func (i *Issuer) Issue() (string, error) {
	buf := make([]byte, ByteLength)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("token: read entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateFormat rejects malformed tokens before any storage lookup.
func ValidateFormat(tok string) bool {
	if len(tok) != EncodedLength {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Fingerprint returns a short digest safe to put in audit logs. Raw tokens
// never reach log output; the fingerprint still lets operators correlate
// repeated attempts against the same link.
func Fingerprint(tok string) string {
	sum := blake2b.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:8])
}
