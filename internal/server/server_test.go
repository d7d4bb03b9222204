package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-sharelinks/pkg/config"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
	resourcestore "github.com/goliatone/go-sharelinks/pkg/resources"
	"github.com/goliatone/go-sharelinks/pkg/sharing"
	"github.com/goliatone/go-sharelinks/pkg/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	res := resourcestore.NewMemoryStore()
	res.Put("tenant-1", domain.ResourceTypeDocument, "doc-1", resources.Resource{
		Name:        "q3 report.pdf",
		ContentType: "application/pdf",
		Data:        []byte("pdf-bytes"),
	})
	res.Put("tenant-1", domain.ResourceTypeSecret, "s1", resources.Resource{
		Name:        "db password",
		ContentType: "text/plain",
		Data:        []byte("hunter2"),
	})

	mod, err := sharing.NewModule(sharing.ModuleOptions{
		Config:    config.Defaults(),
		Storage:   storage.NewMemoryProviders(),
		Resources: res,
	})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	t.Cleanup(mod.Shutdown)

	srv, err := New(Options{Module: mod})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func adminHeaders(req *http.Request) {
	req.Header.Set(HeaderTenantID, "tenant-1")
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserName, "Alex Doe")
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, mutate ...func(*http.Request)) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range mutate {
		fn(req)
	}

	resp, err := srv.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func createShare(t *testing.T, srv *Server, body map[string]any) map[string]any {
	t.Helper()
	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/shares", body, adminHeaders)
	if status != http.StatusCreated {
		t.Fatalf("create share status %d: %v", status, resp)
	}
	return resp
}

func shareBody() map[string]any {
	return map[string]any{
		"resource_type":   "DOCUMENT",
		"resource_id":     "doc-1",
		"resource_name":   "q3 report.pdf",
		"recipient_email": "reader@example.com",
		"message":         "please review",
	}
}

func tokenFromURL(t *testing.T, resp map[string]any) string {
	t.Helper()
	shareURL, _ := resp["share_url"].(string)
	idx := strings.LastIndex(shareURL, "/shared/")
	if idx < 0 {
		t.Fatalf("unexpected share_url %q", shareURL)
	}
	return shareURL[idx+len("/shared/"):]
}

func linkID(t *testing.T, resp map[string]any) string {
	t.Helper()
	link, _ := resp["link"].(map[string]any)
	id, _ := link["id"].(string)
	if id == "" {
		t.Fatalf("missing link id in %v", resp)
	}
	return id
}

func TestAdminRoutesRequireIdentity(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/shares", shareBody())
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %v", status, resp)
	}

	status, _ = doRequest(t, srv, http.MethodGet, "/api/v1/templates", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 on templates, got %d", status)
	}
}

func TestCreateShareAndView(t *testing.T) {
	srv := newTestServer(t)

	created := createShare(t, srv, shareBody())
	tok := tokenFromURL(t, created)
	if len(tok) != 64 {
		t.Fatalf("expected 64-char token, got %q", tok)
	}

	status, view := doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil)
	if status != http.StatusOK {
		t.Fatalf("view status %d: %v", status, view)
	}
	if view["resource_type"] != "DOCUMENT" || view["resource_name"] != "q3 report.pdf" {
		t.Fatalf("unexpected view %v", view)
	}
	if view["first_view"] != true {
		t.Fatalf("expected first_view true")
	}
	content, err := base64.StdEncoding.DecodeString(view["content"].(string))
	if err != nil || string(content) != "pdf-bytes" {
		t.Fatalf("unexpected content %v (%v)", view["content"], err)
	}

	status, again := doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil)
	if status != http.StatusOK {
		t.Fatalf("second view status %d", status)
	}
	if again["first_view"] != false {
		t.Fatalf("expected first_view false on repeat")
	}
	if again["viewed_at"] != view["viewed_at"] {
		t.Fatalf("viewed_at changed between views: %v vs %v", view["viewed_at"], again["viewed_at"])
	}
}

func TestCreateShareValidation(t *testing.T) {
	srv := newTestServer(t)

	body := shareBody()
	body["recipient_email"] = "not-an-email"
	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/shares", body, adminHeaders)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", status, resp)
	}
	if resp["field"] != "recipientEmail" {
		t.Fatalf("expected recipientEmail field, got %v", resp)
	}
}

func TestViewerFailuresAreUniform(t *testing.T) {
	srv := newTestServer(t)

	status, malformed := doRequest(t, srv, http.MethodGet, "/shared/not-a-token", nil)
	if status != http.StatusNotFound {
		t.Fatalf("malformed token status %d", status)
	}
	unknown := strings.Repeat("ab", 32)
	status, missing := doRequest(t, srv, http.MethodGet, "/shared/"+unknown, nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown token status %d", status)
	}
	if malformed["error"] != missing["error"] {
		t.Fatalf("viewer errors differ: %v vs %v", malformed, missing)
	}
}

func TestPolicyLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	created := createShare(t, srv, shareBody())
	id := linkID(t, created)
	tok := tokenFromURL(t, created)

	status, pol := doRequest(t, srv, http.MethodPost, "/api/v1/shares/"+id+"/policies", map[string]any{
		"type":   "BLACKLIST",
		"method": "IP",
		"value":  "203.0.113.50",
		"reason": "known bad exit node",
	}, adminHeaders)
	if status != http.StatusCreated {
		t.Fatalf("create policy status %d: %v", status, pol)
	}
	policyID, _ := pol["id"].(string)

	status, resp := doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil, func(r *http.Request) {
		r.Header.Set(HeaderRealIP, "203.0.113.50")
	})
	if status != http.StatusNotFound {
		t.Fatalf("blacklisted viewer got %d: %v", status, resp)
	}

	status, resp = doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil, func(r *http.Request) {
		r.Header.Set(HeaderRealIP, "198.51.100.9")
	})
	if status != http.StatusOK {
		t.Fatalf("clean viewer got %d: %v", status, resp)
	}

	status, list := doRequest(t, srv, http.MethodGet, "/api/v1/shares/"+id+"/policies", nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("list policies status %d", status)
	}
	if list["total"] != float64(1) {
		t.Fatalf("expected 1 policy, got %v", list["total"])
	}

	status, _ = doRequest(t, srv, http.MethodDelete, "/api/v1/shares/"+id+"/policies/"+policyID, nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("delete policy status %d", status)
	}

	status, resp = doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil, func(r *http.Request) {
		r.Header.Set(HeaderRealIP, "203.0.113.50")
	})
	if status != http.StatusOK {
		t.Fatalf("viewer still blocked after policy delete: %d %v", status, resp)
	}
}

func TestCreatePolicyRejectsBadValue(t *testing.T) {
	srv := newTestServer(t)

	created := createShare(t, srv, shareBody())
	id := linkID(t, created)

	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/shares/"+id+"/policies", map[string]any{
		"type":   "WHITELIST",
		"method": "IP",
		"value":  "999.999.0.1",
	}, adminHeaders)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", status, resp)
	}
}

func TestRevokeShare(t *testing.T) {
	srv := newTestServer(t)

	created := createShare(t, srv, shareBody())
	id := linkID(t, created)
	tok := tokenFromURL(t, created)

	status, _ := doRequest(t, srv, http.MethodDelete, "/api/v1/shares/"+id, nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("revoke status %d", status)
	}

	status, _ = doRequest(t, srv, http.MethodGet, "/shared/"+tok, nil)
	if status != http.StatusNotFound {
		t.Fatalf("revoked link still viewable: %d", status)
	}

	status, link := doRequest(t, srv, http.MethodGet, "/api/v1/shares/"+id, nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("get after revoke status %d", status)
	}
	if link["revoked"] != true {
		t.Fatalf("expected revoked true, got %v", link["revoked"])
	}
}

func TestShareTenantIsolation(t *testing.T) {
	srv := newTestServer(t)

	created := createShare(t, srv, shareBody())
	id := linkID(t, created)

	status, _ := doRequest(t, srv, http.MethodGet, "/api/v1/shares/"+id, nil, func(r *http.Request) {
		r.Header.Set(HeaderTenantID, "tenant-2")
		r.Header.Set(HeaderUserID, "user-9")
	})
	if status != http.StatusNotFound {
		t.Fatalf("cross-tenant read got %d", status)
	}
}

func TestListSharesFilters(t *testing.T) {
	srv := newTestServer(t)

	createShare(t, srv, shareBody())
	secret := shareBody()
	secret["resource_type"] = "SECRET"
	secret["resource_id"] = "s1"
	secret["resource_name"] = "db password"
	secret["recipient_email"] = "ops@example.com"
	createShare(t, srv, secret)

	status, list := doRequest(t, srv, http.MethodGet, "/api/v1/shares?resourceType=SECRET", nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	if list["total"] != float64(1) {
		t.Fatalf("expected 1 secret share, got %v", list["total"])
	}

	status, resp := doRequest(t, srv, http.MethodGet, "/api/v1/shares?resourceType=WIDGET", nil, adminHeaders)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d: %v", status, resp)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, tpl := doRequest(t, srv, http.MethodPost, "/api/v1/templates", map[string]any{
		"name":      "friendly",
		"subject":   "{{ sender_name }} shared {{ resource_name }}",
		"html_body": "<p>Open: {{ share_link }}</p>",
	}, adminHeaders)
	if status != http.StatusCreated {
		t.Fatalf("create template status %d: %v", status, tpl)
	}
	tplID, _ := tpl["id"].(string)

	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/templates", map[string]any{
		"name":      "broken",
		"subject":   "hello {{ nonsense_var }}",
		"html_body": "<p>body</p>",
	}, adminHeaders)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown placeholder, got %d: %v", status, resp)
	}

	status, got := doRequest(t, srv, http.MethodGet, "/api/v1/templates/"+tplID, nil, adminHeaders)
	if status != http.StatusOK || got["name"] != "friendly" {
		t.Fatalf("get template: %d %v", status, got)
	}

	status, updated := doRequest(t, srv, http.MethodPut, "/api/v1/templates/"+tplID, map[string]any{
		"name":      "friendly v2",
		"subject":   "{{ sender_name }} shared a {{ resource_type }}",
		"html_body": "<p>Open: {{ share_link }}</p>",
	}, adminHeaders)
	if status != http.StatusOK || updated["name"] != "friendly v2" {
		t.Fatalf("update template: %d %v", status, updated)
	}

	status, list := doRequest(t, srv, http.MethodGet, "/api/v1/templates", nil, adminHeaders)
	if status != http.StatusOK || list["total"] != float64(1) {
		t.Fatalf("list templates: %d %v", status, list)
	}

	status, _ = doRequest(t, srv, http.MethodDelete, "/api/v1/templates/"+tplID, nil, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("delete template status %d", status)
	}
	status, _ = doRequest(t, srv, http.MethodGet, "/api/v1/templates/"+tplID, nil, adminHeaders)
	if status != http.StatusNotFound {
		t.Fatalf("deleted template still visible: %d", status)
	}
}

func TestTemplatePreview(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/api/v1/templates/preview", map[string]any{
		"subject":   "Hi {{name}}",
		"html_body": "<p>{{ message }} from {{ sender_name }}</p>",
		"variables": map[string]any{"name": "Ana", "sender_name": "Bo"},
	}, adminHeaders)
	if status != http.StatusOK {
		t.Fatalf("preview status %d: %v", status, resp)
	}
	if resp["subject"] != "Hi Ana" {
		t.Fatalf("unexpected subject %v", resp["subject"])
	}
	body, _ := resp["body"].(string)
	if !strings.Contains(body, "{{message}}") && !strings.Contains(body, "{{ message }}") {
		t.Fatalf("expected unresolved marker kept in %q", body)
	}
	if !strings.Contains(body, "Bo") {
		t.Fatalf("expected substituted sender in %q", body)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodGet, "/health", nil)
	if status != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("health: %d %v", status, resp)
	}
}
