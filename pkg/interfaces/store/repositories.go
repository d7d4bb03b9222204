package store

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a unique constraint (such as the share token
// index) rejects a write.
var ErrConflict = errors.New("store: conflict")

// ListOptions capture pagination knobs common to repositories.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListResult bundles records and the filtered total (not the page size).
type ListResult[T any] struct {
	Items []T
	Total int
}

// SharedLinkFilters narrow tenant listings.
type SharedLinkFilters struct {
	ResourceType   domain.ResourceType
	RecipientEmail string
}

// SharedLinkRepository persists share links.
type SharedLinkRepository interface {
	Create(ctx context.Context, link *domain.SharedLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SharedLink, error)
	GetByToken(ctx context.Context, token string) (*domain.SharedLink, error)
	ListByTenant(ctx context.Context, tenantID string, filters SharedLinkFilters, opts ListOptions) (ListResult[domain.SharedLink], error)
	// MarkViewed performs the atomic first-view transition: it sets
	// viewed/viewedAt only when viewed is still false. It returns the
	// canonical viewedAt and whether this call performed the transition.
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (time.Time, bool, error)
	// Revoke flips the terminal revoked flag. Revoking an already revoked
	// link is a no-op success.
	Revoke(ctx context.Context, id uuid.UUID) error
}

// SharePolicyRepository persists per-link access policies. Policies are
// immutable, so the interface has no update.
type SharePolicyRepository interface {
	Create(ctx context.Context, policy *domain.SharePolicy) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SharePolicy, error)
	ListByLink(ctx context.Context, shareLinkID uuid.UUID) ([]domain.SharePolicy, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmailTemplateRepository persists tenant-scoped notification templates.
type EmailTemplateRepository interface {
	Create(ctx context.Context, tpl *domain.EmailTemplate) error
	Update(ctx context.Context, tpl *domain.EmailTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error)
	GetDefault(ctx context.Context, tenantID string) (*domain.EmailTemplate, error)
	ListByTenant(ctx context.Context, tenantID string, opts ListOptions) (ListResult[domain.EmailTemplate], error)
	// ClearDefault drops the default flag from every template of the tenant.
	// Called inside the transaction that promotes a new default.
	ClearDefault(ctx context.Context, tenantID string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
