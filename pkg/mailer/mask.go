package mailer

import (
	"strings"

	masker "github.com/goliatone/go-masker"
)

// MaskAddress obscures the local part of an email address for logging,
// keeping the domain readable for diagnostics.
func MaskAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return maskString(address)
	}
	return maskString(address[:at]) + address[at:]
}

func maskString(value string) string {
	if masked, err := masker.Default.String("preserveEnds(1,1)", value); err == nil {
		return masked
	}
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:1]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1:])
}
