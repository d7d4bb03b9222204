package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-sharelinks/internal/policies"
	"github.com/goliatone/go-sharelinks/internal/shares"
	"github.com/goliatone/go-sharelinks/internal/templates"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/goliatone/go-sharelinks/pkg/policy"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type policyRequest struct {
	Type   string `json:"type"`
	Method string `json:"method"`
	Value  string `json:"value"`
	Reason string `json:"reason,omitempty"`
}

func (p policyRequest) toInput() policies.CreateInput {
	return policies.CreateInput{
		Type:   domain.PolicyType(strings.ToUpper(strings.TrimSpace(p.Type))),
		Method: domain.PolicyMethod(strings.ToUpper(strings.TrimSpace(p.Method))),
		Value:  p.Value,
		Reason: p.Reason,
	}
}

type createShareRequest struct {
	ResourceType   string          `json:"resource_type"`
	ResourceID     string          `json:"resource_id"`
	ResourceName   string          `json:"resource_name"`
	RecipientEmail string          `json:"recipient_email"`
	Message        string          `json:"message,omitempty"`
	TemplateID     *uuid.UUID      `json:"template_id,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	Policies       []policyRequest `json:"policies,omitempty"`
}

// CreateShare creates a link with its policy set in one transaction and
// kicks off the notification email.
func (a *App) CreateShare(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	var req createShareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}

	in := shares.CreateInput{
		ResourceType:   domain.ResourceType(strings.ToUpper(strings.TrimSpace(req.ResourceType))),
		ResourceID:     req.ResourceID,
		ResourceName:   req.ResourceName,
		RecipientEmail: req.RecipientEmail,
		Message:        req.Message,
		TemplateID:     req.TemplateID,
	}
	if req.ExpiresAt != nil {
		in.ExpiresAt = *req.ExpiresAt
	}
	for _, p := range req.Policies {
		in.Policies = append(in.Policies, p.toInput())
	}

	result, err := a.module.Shares().Create(c.Context(), actor, in)
	if err != nil {
		return a.renderError(c, err)
	}

	body := map[string]any{
		"link":      result.Link,
		"share_url": result.ShareURL,
	}
	if result.Warning != "" {
		body["warning"] = result.Warning
	}
	return c.JSON(http.StatusCreated, body)
}

// GetShare returns one link with its policies embedded.
func (a *App) GetShare(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid link id"})
	}

	link, err := a.module.Shares().Get(c.Context(), actor, id)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, link)
}

// ListShares pages through the tenant's links with optional filters.
func (a *App) ListShares(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	filters := shares.ListFilters{
		ResourceType:   domain.ResourceType(strings.ToUpper(strings.TrimSpace(c.Query("resourceType")))),
		RecipientEmail: c.Query("recipientEmail"),
	}
	page, opts := pageOptions(c)

	result, err := a.module.Shares().List(c.Context(), actor, filters, opts)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":     result.Items,
		"total":     result.Total,
		"page":      page,
		"page_size": opts.Limit,
	})
}

// RevokeShare permanently disables a link. Repeats are no-op successes.
func (a *App) RevokeShare(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid link id"})
	}

	if err := a.module.Shares().Revoke(c.Context(), actor, id); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"revoked": true})
}

// CreatePolicy attaches one access policy to an existing link.
func (a *App) CreatePolicy(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	linkID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid link id"})
	}

	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}

	record, err := a.module.Policies().Create(c.Context(), actor, linkID, req.toInput())
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, record)
}

// ListPolicies returns every policy attached to a link.
func (a *App) ListPolicies(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	linkID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid link id"})
	}

	items, err := a.module.Policies().List(c.Context(), actor, linkID)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// DeletePolicy removes one policy from a link. Policies are immutable;
// changing one is delete plus recreate.
func (a *App) DeletePolicy(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	linkID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid link id"})
	}
	policyID, err := parseID(c, "policyId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid policy id"})
	}

	if err := a.module.Policies().Delete(c.Context(), actor, linkID, policyID); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": true})
}

type templateRequest struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"html_body"`
	IsDefault bool   `json:"is_default"`
}

// CreateTemplate validates a template by rendering it against sample
// data, then persists it.
func (a *App) CreateTemplate(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}

	tpl, err := a.module.Templates().Create(c.Context(), actor, templates.CreateInput{
		Name:      req.Name,
		Subject:   req.Subject,
		HTMLBody:  req.HTMLBody,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, tpl)
}

// GetTemplate returns one template.
func (a *App) GetTemplate(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid template id"})
	}

	tpl, err := a.module.Templates().Get(c.Context(), actor, id)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// ListTemplates pages through the tenant's templates.
func (a *App) ListTemplates(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	page, opts := pageOptions(c)
	result, err := a.module.Templates().List(c.Context(), actor, opts)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":     result.Items,
		"total":     result.Total,
		"page":      page,
		"page_size": opts.Limit,
	})
}

// UpdateTemplate replaces a template's content after re-validation.
func (a *App) UpdateTemplate(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid template id"})
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}

	tpl, err := a.module.Templates().Update(c.Context(), actor, id, templates.UpdateInput{
		Name:      req.Name,
		Subject:   req.Subject,
		HTMLBody:  req.HTMLBody,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate soft-deletes a template.
func (a *App) DeleteTemplate(c router.Context) error {
	actor, ok := GetActor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid template id"})
	}

	if err := a.module.Templates().Delete(c.Context(), actor, id); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": true})
}

type previewRequest struct {
	Subject   string         `json:"subject"`
	HTMLBody  string         `json:"html_body"`
	Variables map[string]any `json:"variables,omitempty"`
}

// PreviewTemplate renders subject and body without persisting anything.
// Unresolved placeholders stay visible in the output for editing
// feedback.
func (a *App) PreviewTemplate(c router.Context) error {
	if _, ok := GetActor(c); !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}

	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}

	rendered, err := a.module.Templates().Preview(c.Context(), req.Subject, req.HTMLBody, req.Variables)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"subject": rendered.Subject,
		"body":    rendered.Body,
	})
}

type viewResponse struct {
	ResourceType domain.ResourceType `json:"resource_type"`
	ResourceName string              `json:"resource_name"`
	ContentType  string              `json:"content_type"`
	Content      []byte              `json:"content"`
	ViewedAt     time.Time           `json:"viewed_at"`
	FirstView    bool                `json:"first_view"`
}

// ViewShared resolves a token for an anonymous viewer. Every failure
// except upstream store trouble collapses to the same not-found body so
// recipients cannot enumerate tokens or policies.
func (a *App) ViewShared(c router.Context) error {
	tok := c.Param("token", "")

	view, err := a.module.Shares().ResolveView(c.Context(), tok, viewerContext(c))
	if err != nil {
		switch {
		case errors.Is(err, shares.ErrLinkNotFound), errors.Is(err, shares.ErrAccessDenied):
			return c.JSON(http.StatusNotFound, map[string]any{
				"error": "share not found or invalid token",
			})
		case errors.Is(err, resources.ErrStoreUnavailable):
			return c.JSON(http.StatusBadGateway, map[string]any{
				"error": "resource temporarily unavailable",
			})
		default:
			a.log.Error("view resolution failed", logger.F("error", err.Error()))
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error"})
		}
	}

	return c.JSON(http.StatusOK, viewResponse{
		ResourceType: view.ResourceType,
		ResourceName: view.ResourceName,
		ContentType:  view.ContentType,
		Content:      view.Data,
		ViewedAt:     view.ViewedAt,
		FirstView:    view.FirstView,
	})
}

// renderError maps service errors onto admin-facing HTTP responses.
// Admin callers get precise reasons; the viewer path has its own
// deliberately vague mapping.
func (a *App) renderError(c router.Context, err error) error {
	var shareVal *shares.ValidationError
	var tplVal *templates.ValidationError
	var polVal policy.ValidationError
	var unresolved *templates.UnresolvedError

	switch {
	case errors.As(err, &shareVal):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": shareVal.Error(), "field": shareVal.Field,
		})
	case errors.As(err, &tplVal):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": tplVal.Error(), "field": tplVal.Field,
		})
	case errors.As(err, &polVal):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": polVal.Error(), "field": string(polVal.Method),
		})
	case errors.As(err, &unresolved):
		return c.JSON(http.StatusBadRequest, map[string]any{"error": unresolved.Error()})
	case errors.Is(err, shares.ErrLinkNotFound), errors.Is(err, policies.ErrLinkNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": "link not found"})
	case errors.Is(err, policies.ErrPolicyNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": "policy not found"})
	case errors.Is(err, templates.ErrTemplateNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": "template not found"})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, shares.ErrTokenGenerationExhausted):
		a.log.Error("token generation exhausted")
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "could not allocate a share token",
		})
	default:
		a.log.Error("request failed", logger.F("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func parseID(c router.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name, ""))
}

// pageOptions translates page/pageSize query params into offsets.
// Page numbering is 1-based.
func pageOptions(c router.Context) (int, store.ListOptions) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query("pageSize"))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, store.ListOptions{Limit: size, Offset: (page - 1) * size}
}
