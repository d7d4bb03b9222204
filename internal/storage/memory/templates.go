package memory

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

// TemplateRepository is the in-memory store.EmailTemplateRepository.
type TemplateRepository struct {
	base baseMemoryRepo[domain.EmailTemplate]
}

var _ store.EmailTemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{
		base: newBaseMemoryRepo(func(t *domain.EmailTemplate) *domain.RecordMeta { return &t.RecordMeta }),
	}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *domain.EmailTemplate) error {
	return r.base.create(tpl)
}

func (r *TemplateRepository) Update(ctx context.Context, tpl *domain.EmailTemplate) error {
	return r.base.update(tpl)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	return r.base.getByID(id)
}

func (r *TemplateRepository) GetDefault(ctx context.Context, tenantID string) (*domain.EmailTemplate, error) {
	items := r.base.snapshot(func(t *domain.EmailTemplate) bool {
		return t.TenantID == tenantID && t.IsDefault
	})
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	out := items[0]
	return &out, nil
}

func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID string, opts store.ListOptions) (store.ListResult[domain.EmailTemplate], error) {
	items := r.base.snapshot(func(t *domain.EmailTemplate) bool { return t.TenantID == tenantID })
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return paginate(items, opts), nil
}

func (r *TemplateRepository) ClearDefault(ctx context.Context, tenantID string) error {
	r.base.mu.Lock()
	defer r.base.mu.Unlock()

	for id, record := range r.base.records {
		if record.TenantID == tenantID && record.IsDefault && record.DeletedAt.IsZero() {
			record.IsDefault = false
			record.UpdatedAt = time.Now().UTC()
			r.base.records[id] = record
		}
	}
	return nil
}

func (r *TemplateRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(id)
}
