package shares

import (
	"errors"
	"fmt"
)

// ErrLinkNotFound covers every viewer-facing failure to resolve a token
// and admin lookups for ids that do not exist. The viewer transport maps
// both missing links and denials to the same response so tokens cannot
// be enumerated.
var ErrLinkNotFound = errors.New("shares: link not found")

// ErrAccessDenied signals the evaluator refused the request. The reason
// is logged for audit but never attached to this error.
var ErrAccessDenied = errors.New("shares: access denied")

// ErrTokenGenerationExhausted signals repeated token collisions, which
// points at an entropy or configuration problem. Callers should not
// retry.
var ErrTokenGenerationExhausted = errors.New("shares: token generation exhausted")

// ValidationError rejects malformed create input before any mutation.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("shares: invalid %s: %s", e.Field, e.Detail)
}
