// Package shares orchestrates the share link lifecycle: creation with
// attached policies and notification email, admin reads, revocation,
// and the viewer-facing resolve-and-record-view flow.
package shares

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-sharelinks/internal/policies"
	"github.com/goliatone/go-sharelinks/internal/templates"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/goliatone/go-sharelinks/pkg/mailer"
	"github.com/goliatone/go-sharelinks/pkg/policy"
	"github.com/goliatone/go-sharelinks/pkg/token"
	"github.com/google/uuid"
)

// Config tunes the share service.
type Config struct {
	// PublicBaseURL is the externally reachable prefix for viewer links,
	// e.g. https://share.example.com.
	PublicBaseURL string
	// MaxTokenAttempts bounds issuance retries on token collision.
	MaxTokenAttempts int
	// NotifyTimeout bounds the background notification send.
	NotifyTimeout time.Duration
}

func (c *Config) defaults() {
	if c.MaxTokenAttempts <= 0 {
		c.MaxTokenAttempts = 5
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 30 * time.Second
	}
}

// Service implements the share link lifecycle.
type Service struct {
	cfg       Config
	links     store.SharedLinkRepository
	policyDB  store.SharePolicyRepository
	policySvc *policies.Service
	tplSvc    *templates.Service
	issuer    *token.Issuer
	store     resources.Store
	sender    mailer.Sender
	tx        store.TransactionManager
	log       logger.Logger

	notifyWG sync.WaitGroup
}

// NewService wires the share service. Transaction manager and logger may
// be nil; the notification sender may be nil to disable email entirely.
func NewService(
	cfg Config,
	links store.SharedLinkRepository,
	policyDB store.SharePolicyRepository,
	policySvc *policies.Service,
	tplSvc *templates.Service,
	issuer *token.Issuer,
	resStore resources.Store,
	sender mailer.Sender,
	tx store.TransactionManager,
	log logger.Logger,
) *Service {
	cfg.defaults()
	if tx == nil {
		tx = &store.NopTransactionManager{}
	}
	if log == nil {
		log = &logger.Nop{}
	}
	if issuer == nil {
		issuer = token.NewIssuer()
	}
	return &Service{
		cfg:       cfg,
		links:     links,
		policyDB:  policyDB,
		policySvc: policySvc,
		tplSvc:    tplSvc,
		issuer:    issuer,
		store:     resStore,
		sender:    sender,
		tx:        tx,
		log:       log.With(logger.F("component", "shares")),
	}
}

// CreateInput carries the fields for a new share link.
type CreateInput struct {
	ResourceType   domain.ResourceType
	ResourceID     string
	ResourceName   string
	RecipientEmail string
	Message        string
	TemplateID     *uuid.UUID
	ExpiresAt      time.Time
	Policies       []policies.CreateInput
}

// CreateResult returns the persisted link plus a warning when the
// notification could not be prepared. The warning never blocks creation.
type CreateResult struct {
	Link     *domain.SharedLink
	ShareURL string
	Warning  string
}

// Create validates input and the whole policy set, issues a token with
// bounded collision retries, and persists the link and its policies in
// one transaction. The notification email goes out in the background.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (CreateResult, error) {
	if err := s.validateCreate(in); err != nil {
		return CreateResult{}, err
	}

	link := &domain.SharedLink{
		TenantID:       actor.TenantID,
		ResourceType:   in.ResourceType,
		ResourceID:     strings.TrimSpace(in.ResourceID),
		ResourceName:   strings.TrimSpace(in.ResourceName),
		RecipientEmail: strings.TrimSpace(in.RecipientEmail),
		Message:        strings.TrimSpace(in.Message),
		ExpiresAt:      in.ExpiresAt,
		CreatedBy:      actor.UserID,
	}

	// Validate the whole policy set before anything is written.
	records := make([]*domain.SharePolicy, 0, len(in.Policies))
	for _, pin := range in.Policies {
		record, err := s.policySvc.Build(actor, uuid.Nil, pin)
		if err != nil {
			return CreateResult{}, err
		}
		records = append(records, record)
	}

	if err := s.persistWithToken(ctx, link, records); err != nil {
		return CreateResult{}, err
	}
	link.Policies = derefPolicies(records)

	shareURL := s.shareURL(link.Token)
	s.log.Info("share link created",
		logger.F("link_id", link.ID.String()),
		logger.F("tenant_id", link.TenantID),
		logger.F("resource_type", string(link.ResourceType)),
		logger.F("token_fp", token.Fingerprint(link.Token)),
		logger.F("policies", len(records)),
	)

	warning := s.notify(ctx, actor, link, in.TemplateID, shareURL)
	return CreateResult{Link: link, ShareURL: shareURL, Warning: warning}, nil
}

// persistWithToken issues tokens until one does not collide, writing the
// link and its policies atomically.
func (s *Service) persistWithToken(ctx context.Context, link *domain.SharedLink, records []*domain.SharePolicy) error {
	for attempt := 0; attempt < s.cfg.MaxTokenAttempts; attempt++ {
		tok, err := s.issuer.Issue()
		if err != nil {
			return err
		}
		link.Token = tok

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.links.Create(ctx, link); err != nil {
				return err
			}
			for _, record := range records {
				record.ShareLinkID = link.ID
				if err := s.policyDB.Create(ctx, record); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConflict) {
			s.log.Warn("token collision, reissuing",
				logger.F("attempt", attempt+1),
				logger.F("token_fp", token.Fingerprint(tok)),
			)
			link.ID = uuid.Nil
			continue
		}
		return err
	}
	return ErrTokenGenerationExhausted
}

// Get returns a link with its policies embedded.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.SharedLink, error) {
	link, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	attached, err := s.policyDB.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	link.Policies = attached
	return link, nil
}

// ListFilters narrows List results.
type ListFilters struct {
	ResourceType   domain.ResourceType
	RecipientEmail string
}

// List pages through the tenant's links. Total reflects the filtered
// count, not the page size.
func (s *Service) List(ctx context.Context, actor domain.Actor, filters ListFilters, opts store.ListOptions) (store.ListResult[domain.SharedLink], error) {
	if filters.ResourceType != "" && !filters.ResourceType.Valid() {
		return store.ListResult[domain.SharedLink]{}, &ValidationError{Field: "resourceType", Detail: "must be SECRET or DOCUMENT"}
	}
	return s.links.ListByTenant(ctx, actor.TenantID, store.SharedLinkFilters{
		ResourceType:   filters.ResourceType,
		RecipientEmail: filters.RecipientEmail,
	}, opts)
}

// Revoke disables a link. Revoking an already-revoked link succeeds so
// operator retries stay safe.
func (s *Service) Revoke(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	link, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.links.Revoke(ctx, link.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	s.log.Info("share link revoked",
		logger.F("link_id", link.ID.String()),
		logger.F("tenant_id", link.TenantID),
	)
	return nil
}

// ResourceView is what an allowed viewer receives.
type ResourceView struct {
	ResourceType domain.ResourceType
	ResourceName string
	ContentType  string
	Data         []byte
	ViewedAt     time.Time
	FirstView    bool
}

// ResolveView resolves a token, evaluates access policies against the
// request context, fetches the resource, and records the first view
// exactly once. Missing links and denials are indistinguishable to the
// caller; the audit log keeps the real reason.
func (s *Service) ResolveView(ctx context.Context, tok string, reqCtx domain.RequestContext) (*ResourceView, error) {
	fp := token.Fingerprint(tok)

	if !token.ValidateFormat(tok) {
		s.log.Warn("view rejected: malformed token", logger.F("token_fp", fp))
		return nil, ErrLinkNotFound
	}

	link, err := s.links.GetByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("view rejected: unknown token", logger.F("token_fp", fp))
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	attached, err := s.policyDB.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	decision := policy.Evaluate(*link, attached, reqCtx)
	if !decision.Allowed {
		s.log.Warn("view denied",
			logger.F("token_fp", fp),
			logger.F("link_id", link.ID.String()),
			logger.F("reason", string(decision.Reason)),
			logger.F("method", string(decision.Method)),
			logger.F("ip", reqCtx.IP),
		)
		return nil, ErrAccessDenied
	}

	res, err := s.store.Fetch(ctx, link.TenantID, link.ResourceType, link.ResourceID)
	if err != nil {
		if errors.Is(err, resources.ErrResourceNotFound) {
			s.log.Warn("view failed: resource gone upstream",
				logger.F("link_id", link.ID.String()),
				logger.F("resource_id", link.ResourceID),
			)
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	viewedAt, first, err := s.links.MarkViewed(ctx, link.ID, reqCtx.Time())
	if err != nil {
		return nil, err
	}

	s.log.Info("share link viewed",
		logger.F("token_fp", fp),
		logger.F("link_id", link.ID.String()),
		logger.F("first_view", first),
		logger.F("ip", reqCtx.IP),
	)

	return &ResourceView{
		ResourceType: link.ResourceType,
		ResourceName: link.ResourceName,
		ContentType:  res.ContentType,
		Data:         res.Data,
		ViewedAt:     viewedAt,
		FirstView:    first,
	}, nil
}

// Flush blocks until background notification sends finish. Called on
// shutdown and by tests.
func (s *Service) Flush() {
	s.notifyWG.Wait()
}

// notify renders the notification synchronously (so failures surface as
// a warning on the create response) and delivers it in the background.
func (s *Service) notify(ctx context.Context, actor domain.Actor, link *domain.SharedLink, templateID *uuid.UUID, shareURL string) string {
	if s.sender == nil || s.tplSvc == nil {
		return ""
	}

	subjectTpl, bodyTpl, err := s.tplSvc.ResolveNotification(ctx, actor.TenantID, templateID)
	if err != nil {
		s.log.Warn("notification template unavailable",
			logger.F("link_id", link.ID.String()),
			logger.F("error", err),
		)
		return "notification not sent: template unavailable"
	}

	senderName := strings.TrimSpace(actor.Name)
	if senderName == "" {
		senderName = "A user"
	}
	vars := map[string]any{
		templates.VarSenderName:     senderName,
		templates.VarRecipientEmail: link.RecipientEmail,
		templates.VarShareLink:      shareURL,
		templates.VarMessage:        link.Message,
		templates.VarResourceName:   link.ResourceName,
		templates.VarResourceType:   strings.ToLower(string(link.ResourceType)),
	}

	rendered, err := s.tplSvc.Renderer().Render(subjectTpl, bodyTpl, vars)
	if err != nil {
		s.log.Warn("notification render failed",
			logger.F("link_id", link.ID.String()),
			logger.F("error", err),
		)
		return "notification not sent: template failed to render"
	}

	msg := mailer.Message{
		To:       link.RecipientEmail,
		Subject:  rendered.Subject,
		HTMLBody: rendered.Body,
	}
	linkID := link.ID.String()

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()
		if err := s.sender.Send(sendCtx, msg); err != nil {
			s.log.Error("notification delivery failed",
				logger.F("link_id", linkID),
				logger.F("to", mailer.MaskAddress(msg.To)),
				logger.F("error", err),
			)
		}
	}()
	return ""
}

func (s *Service) shareURL(tok string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return base + "/shared/" + tok
}

func (s *Service) getOwned(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.SharedLink, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if link.TenantID != actor.TenantID {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func (s *Service) validateCreate(in CreateInput) error {
	if !in.ResourceType.Valid() {
		return &ValidationError{Field: "resourceType", Detail: "must be SECRET or DOCUMENT"}
	}
	if strings.TrimSpace(in.ResourceID) == "" {
		return &ValidationError{Field: "resourceId", Detail: "must not be empty"}
	}
	if strings.TrimSpace(in.ResourceName) == "" {
		return &ValidationError{Field: "resourceName", Detail: "must not be empty"}
	}
	email := strings.TrimSpace(in.RecipientEmail)
	if email == "" {
		return &ValidationError{Field: "recipientEmail", Detail: "must not be empty"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "recipientEmail", Detail: "must be a valid email address"}
	}
	if !in.ExpiresAt.IsZero() && !in.ExpiresAt.After(time.Now()) {
		return &ValidationError{Field: "expiresAt", Detail: "must be in the future"}
	}
	return nil
}

func derefPolicies(records []*domain.SharePolicy) []domain.SharePolicy {
	if len(records) == 0 {
		return nil
	}
	out := make([]domain.SharePolicy, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	return out
}
