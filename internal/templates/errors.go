package templates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTemplateNotFound signals a lookup for a template id that does not
// exist for the tenant.
var ErrTemplateNotFound = errors.New("templates: template not found")

// UnresolvedError reports placeholders a render could not substitute.
type UnresolvedError struct {
	Missing []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("templates: unresolved placeholders: %s", strings.Join(e.Missing, ", "))
}

// ValidationError rejects a template whose fields or contents cannot be
// used to produce a notification.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("templates: invalid %s: %s", e.Field, e.Detail)
}
