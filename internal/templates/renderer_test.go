package templates

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("Hi {{ name }}, your {{resource_type}} from {{ name }} is ready")
	want := []string{"name", "resource_type"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("placeholders = %v, want %v", got, want)
	}

	if got := Placeholders("no placeholders here"); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestPreviewSubstitutesVariables(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Preview("Hi {{name}}", "<p>Hi {{ name }}</p>", map[string]any{"name": "Ana"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if out.Subject != "Hi Ana" {
		t.Fatalf("subject = %q, want %q", out.Subject, "Hi Ana")
	}
	if out.Body != "<p>Hi Ana</p>" {
		t.Fatalf("body = %q", out.Body)
	}
}

func TestPreviewKeepsUnresolvedMarkers(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Preview("Hi {{ name }}", "{{ share_link }}", nil)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(out.Subject, "{{name}}") {
		t.Fatalf("unresolved placeholder should remain visible, got %q", out.Subject)
	}
	if !ContainsUnresolved(out.Subject) || !ContainsUnresolved(out.Body) {
		t.Fatalf("expected unresolved markers in output")
	}
}

func TestRenderRejectsUnresolved(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Render("Hi {{ name }}", "{{ share_link }}", map[string]any{"name": "Ana"})
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedError, got %v", err)
	}
	if !reflect.DeepEqual(unresolved.Missing, []string{"share_link"}) {
		t.Fatalf("missing = %v", unresolved.Missing)
	}
}

func TestDefaultTemplatesRenderWithSampleVariables(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(DefaultSubject, DefaultHTMLBody, SampleVariables())
	if err != nil {
		t.Fatalf("render defaults: %v", err)
	}
	if !strings.Contains(out.Subject, "Alex Doe") {
		t.Fatalf("subject should carry the sender name, got %q", out.Subject)
	}
	if !strings.Contains(out.Body, "https://share.example.com/shared/preview") {
		t.Fatalf("body should carry the share link")
	}
	if ContainsUnresolved(out.Subject) || ContainsUnresolved(out.Body) {
		t.Fatalf("built-in templates must fully resolve against sample variables")
	}
}
