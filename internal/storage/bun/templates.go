package bunrepo

import (
	"context"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TemplateRepository is the bun-backed store.EmailTemplateRepository.
type TemplateRepository struct {
	base baseRepository[domain.EmailTemplate]
}

var _ store.EmailTemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository(db *bun.DB) *TemplateRepository {
	handlers := repository.ModelHandlers[*domain.EmailTemplate]{
		NewRecord:          func() *domain.EmailTemplate { return &domain.EmailTemplate{} },
		GetID:              func(t *domain.EmailTemplate) uuid.UUID { return t.ID },
		SetID:              func(t *domain.EmailTemplate, id uuid.UUID) { t.ID = id },
		GetIdentifier:      func() string { return "name" },
		GetIdentifierValue: func(t *domain.EmailTemplate) string { return t.Name },
	}
	return &TemplateRepository{
		base: newBaseRepository(db, handlers, func(t *domain.EmailTemplate) *domain.RecordMeta { return &t.RecordMeta }),
	}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *domain.EmailTemplate) error {
	return r.base.create(ctx, tpl)
}

func (r *TemplateRepository) Update(ctx context.Context, tpl *domain.EmailTemplate) error {
	return r.base.update(ctx, tpl)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	return r.base.getByID(ctx, id)
}

func (r *TemplateRepository) GetDefault(ctx context.Context, tenantID string) (*domain.EmailTemplate, error) {
	return r.base.getOne(ctx,
		withTenant(tenantID),
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_default = ?", true)
		},
	)
}

func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID string, opts store.ListOptions) (store.ListResult[domain.EmailTemplate], error) {
	return r.base.list(ctx, withTenant(tenantID), withListOptions(opts))
}

func (r *TemplateRepository) ClearDefault(ctx context.Context, tenantID string) error {
	_, err := r.base.conn(ctx).NewUpdate().
		Model((*domain.EmailTemplate)(nil)).
		Set("is_default = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tenant_id = ?", tenantID).
		Where("is_default = ?", true).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return mapError(err)
}

func (r *TemplateRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}
