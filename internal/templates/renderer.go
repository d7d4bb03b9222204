// Package templates renders notification email subjects and bodies from
// tenant-managed templates. Placeholders use the `{{ name }}` form; any
// placeholder the caller does not supply a value for survives the render
// as a literal marker so it is visible instead of silently dropped.
package templates

import (
	"fmt"
	"regexp"
	"sync"

	gotemplate "github.com/goliatone/go-template"
)

// Template variables available to share notification emails.
const (
	VarSenderName     = "sender_name"
	VarRecipientEmail = "recipient_email"
	VarShareLink      = "share_link"
	VarMessage        = "message"
	VarResourceName   = "resource_name"
	VarResourceType   = "resource_type"
)

// DefaultSubject is used when neither the request nor the tenant provides
// a template.
const DefaultSubject = `{{ sender_name }} shared a {{ resource_type }} with you`

// DefaultHTMLBody is the built-in notification body.
const DefaultHTMLBody = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
    .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 40px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
    .header { text-align: center; margin-bottom: 30px; }
    .header h1 { color: #1a1a1a; font-size: 24px; margin: 0; }
    .content { color: #333; line-height: 1.6; }
    .message { background: #f8f9fa; border-left: 4px solid #4f46e5; padding: 15px; margin: 20px 0; border-radius: 0 4px 4px 0; }
    .btn { display: inline-block; background: #4f46e5; color: #fff; padding: 12px 30px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
    .footer { text-align: center; color: #999; font-size: 12px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Shared {{ resource_type }}</h1>
    </div>
    <div class="content">
      <p><strong>{{ sender_name }}</strong> has shared a {{ resource_type }} with you: <strong>{{ resource_name }}</strong></p>
      <div class="message">
        <p>{{ message }}</p>
      </div>
      <p style="text-align: center;">
        <a href="{{ share_link }}" class="btn">View Shared {{ resource_type }}</a>
      </p>
    </div>
    <div class="footer">
      <p>This email was sent automatically. If you were not expecting it you can ignore it.</p>
    </div>
  </div>
</body>
</html>`

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_]\w*)\s*\}\}`)

// Placeholders returns the distinct placeholder names in a template,
// in order of first appearance.
func Placeholders(tpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tpl, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ContainsUnresolved reports whether rendered output still carries raw
// placeholder syntax.
func ContainsUnresolved(rendered string) bool {
	return placeholderPattern.MatchString(rendered)
}

// SampleVariables returns plausible values for every notification
// variable, used to validate templates by rendering them.
func SampleVariables() map[string]any {
	return map[string]any{
		VarSenderName:     "Alex Doe",
		VarRecipientEmail: "recipient@example.com",
		VarShareLink:      "https://share.example.com/shared/preview",
		VarMessage:        "Here is the file we discussed.",
		VarResourceName:   "Quarterly Report",
		VarResourceType:   "document",
	}
}

// Rendered is the outcome of substituting variables into a template pair.
type Rendered struct {
	Subject string
	Body    string
}

// Renderer substitutes variables into subject/body template pairs. The
// underlying engine is not safe for concurrent renders, so calls are
// serialized.
type Renderer struct {
	engine *gotemplate.Engine
	mu     sync.Mutex
}

// NewRenderer builds a renderer backed by go-template.
func NewRenderer(opts ...gotemplate.Option) (*Renderer, error) {
	rendererOpts := []gotemplate.Option{
		gotemplate.WithBaseDir("."),
	}
	rendererOpts = append(rendererOpts, opts...)

	engine, err := gotemplate.NewRenderer(rendererOpts...)
	if err != nil {
		return nil, fmt.Errorf("templates: renderer config: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

// Render substitutes variables into both templates and fails if any
// placeholder remains unresolved. The partially rendered output is
// returned alongside the error so callers can log what was missing.
func (r *Renderer) Render(subjectTpl, bodyTpl string, vars map[string]any) (Rendered, error) {
	out, err := r.substitute(subjectTpl, bodyTpl, vars)
	if err != nil {
		return out, err
	}
	if ContainsUnresolved(out.Subject) || ContainsUnresolved(out.Body) {
		missing := missingVariables(subjectTpl, bodyTpl, vars)
		return out, &UnresolvedError{Missing: missing}
	}
	return out, nil
}

// Preview runs the same substitution but keeps unresolved placeholders
// as literal markers in the output, for live editing feedback.
func (r *Renderer) Preview(subjectTpl, bodyTpl string, vars map[string]any) (Rendered, error) {
	return r.substitute(subjectTpl, bodyTpl, vars)
}

func (r *Renderer) substitute(subjectTpl, bodyTpl string, vars map[string]any) (Rendered, error) {
	payload := make(map[string]any, len(vars))
	for k, v := range vars {
		payload[k] = v
	}
	// Unsupplied placeholders render as themselves so they stay visible.
	for _, tpl := range []string{subjectTpl, bodyTpl} {
		for _, name := range Placeholders(tpl) {
			if _, ok := payload[name]; !ok {
				payload[name] = "{{" + name + "}}"
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subject, err := r.engine.RenderString(subjectTpl, payload)
	if err != nil {
		return Rendered{}, fmt.Errorf("templates: render subject: %w", err)
	}
	body, err := r.engine.RenderString(bodyTpl, payload)
	if err != nil {
		return Rendered{}, fmt.Errorf("templates: render body: %w", err)
	}
	return Rendered{Subject: subject, Body: body}, nil
}

func missingVariables(subjectTpl, bodyTpl string, vars map[string]any) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, tpl := range []string{subjectTpl, bodyTpl} {
		for _, name := range Placeholders(tpl) {
			if _, supplied := vars[name]; supplied {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			missing = append(missing, name)
		}
	}
	return missing
}
