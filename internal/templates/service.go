package templates

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

// Service manages tenant notification templates. Templates are validated
// by rendering them against sample variables before they are persisted,
// so a stored template is always renderable.
type Service struct {
	repo     store.EmailTemplateRepository
	tx       store.TransactionManager
	renderer *Renderer
	log      logger.Logger
}

// NewService wires the template service. A nil transaction manager or
// logger falls back to no-op implementations.
func NewService(repo store.EmailTemplateRepository, tx store.TransactionManager, renderer *Renderer, log logger.Logger) *Service {
	if tx == nil {
		tx = &store.NopTransactionManager{}
	}
	if log == nil {
		log = &logger.Nop{}
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		renderer: renderer,
		log:      log.With(logger.F("component", "templates")),
	}
}

// CreateInput carries the fields for a new template.
type CreateInput struct {
	Name      string
	Subject   string
	HTMLBody  string
	IsDefault bool
}

// UpdateInput carries the full replacement state for an existing template.
type UpdateInput struct {
	Name      string
	Subject   string
	HTMLBody  string
	IsDefault bool
}

// Create validates and persists a template. When the template is marked
// default the previous tenant default is cleared in the same transaction.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.EmailTemplate, error) {
	if err := s.validate(in.Name, in.Subject, in.HTMLBody); err != nil {
		return nil, err
	}

	tpl := &domain.EmailTemplate{
		TenantID:  actor.TenantID,
		Name:      strings.TrimSpace(in.Name),
		Subject:   in.Subject,
		HTMLBody:  in.HTMLBody,
		IsDefault: in.IsDefault,
		CreatedBy: actor.UserID,
		UpdatedBy: actor.UserID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if in.IsDefault {
			if err := s.repo.ClearDefault(ctx, actor.TenantID); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, tpl)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("template created",
		logger.F("template_id", tpl.ID.String()),
		logger.F("tenant_id", tpl.TenantID),
		logger.F("default", tpl.IsDefault),
	)
	return tpl, nil
}

// Update replaces a template's contents. Resolving an id that belongs to
// another tenant behaves like a missing template.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateInput) (*domain.EmailTemplate, error) {
	if err := s.validate(in.Name, in.Subject, in.HTMLBody); err != nil {
		return nil, err
	}

	tpl, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	tpl.Name = strings.TrimSpace(in.Name)
	tpl.Subject = in.Subject
	tpl.HTMLBody = in.HTMLBody
	tpl.UpdatedBy = actor.UserID

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if in.IsDefault && !tpl.IsDefault {
			if err := s.repo.ClearDefault(ctx, actor.TenantID); err != nil {
				return err
			}
		}
		tpl.IsDefault = in.IsDefault
		return s.repo.Update(ctx, tpl)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("template updated",
		logger.F("template_id", tpl.ID.String()),
		logger.F("tenant_id", tpl.TenantID),
	)
	return tpl, nil
}

// Get fetches a tenant's template by id.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.EmailTemplate, error) {
	return s.get(ctx, actor, id)
}

// List pages through a tenant's templates.
func (s *Service) List(ctx context.Context, actor domain.Actor, opts store.ListOptions) (store.ListResult[domain.EmailTemplate], error) {
	return s.repo.ListByTenant(ctx, actor.TenantID, opts)
}

// Delete soft-deletes a template so historical notifications remain
// auditable.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	tpl, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tpl.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	s.log.Info("template deleted",
		logger.F("template_id", tpl.ID.String()),
		logger.F("tenant_id", tpl.TenantID),
	)
	return nil
}

// Preview renders arbitrary subject/body templates with the supplied
// variables without persisting anything. Unresolved placeholders stay in
// the output as literal markers.
func (s *Service) Preview(ctx context.Context, subject, htmlBody string, vars map[string]any) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}
	return s.renderer.Preview(subject, htmlBody, vars)
}

// ResolveNotification picks the subject/body template pair for a share
// notification: the requested template when given, otherwise the tenant
// default, otherwise the built-in default.
func (s *Service) ResolveNotification(ctx context.Context, tenantID string, templateID *uuid.UUID) (subject, htmlBody string, err error) {
	if templateID != nil {
		tpl, err := s.repo.GetByID(ctx, *templateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", "", ErrTemplateNotFound
			}
			return "", "", err
		}
		if tpl.TenantID != tenantID {
			return "", "", ErrTemplateNotFound
		}
		return tpl.Subject, tpl.HTMLBody, nil
	}

	tpl, err := s.repo.GetDefault(ctx, tenantID)
	switch {
	case err == nil:
		return tpl.Subject, tpl.HTMLBody, nil
	case errors.Is(err, store.ErrNotFound):
		return DefaultSubject, DefaultHTMLBody, nil
	default:
		return "", "", err
	}
}

// Renderer exposes the underlying renderer for callers that assemble
// their own variable maps.
func (s *Service) Renderer() *Renderer {
	return s.renderer
}

func (s *Service) get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.EmailTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tpl.TenantID != actor.TenantID {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

// validate rejects empty fields and templates that cannot render with
// the full sample variable set.
func (s *Service) validate(name, subject, htmlBody string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Detail: "must not be empty"}
	}
	if strings.TrimSpace(subject) == "" {
		return &ValidationError{Field: "subject", Detail: "must not be empty"}
	}
	if strings.TrimSpace(htmlBody) == "" {
		return &ValidationError{Field: "htmlBody", Detail: "must not be empty"}
	}

	if _, err := s.renderer.Render(subject, htmlBody, SampleVariables()); err != nil {
		var unresolved *UnresolvedError
		if errors.As(err, &unresolved) {
			return &ValidationError{
				Field:  "htmlBody",
				Detail: "unknown placeholders: " + strings.Join(unresolved.Missing, ", "),
			}
		}
		return &ValidationError{Field: "htmlBody", Detail: err.Error()}
	}
	return nil
}
