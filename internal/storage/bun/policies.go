package bunrepo

import (
	"context"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PolicyRepository is the bun-backed store.SharePolicyRepository.
type PolicyRepository struct {
	base baseRepository[domain.SharePolicy]
}

var _ store.SharePolicyRepository = (*PolicyRepository)(nil)

func NewPolicyRepository(db *bun.DB) *PolicyRepository {
	handlers := repository.ModelHandlers[*domain.SharePolicy]{
		NewRecord:          func() *domain.SharePolicy { return &domain.SharePolicy{} },
		GetID:              func(p *domain.SharePolicy) uuid.UUID { return p.ID },
		SetID:              func(p *domain.SharePolicy, id uuid.UUID) { p.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(p *domain.SharePolicy) string { return p.ID.String() },
	}
	return &PolicyRepository{
		base: newBaseRepository(db, handlers, func(p *domain.SharePolicy) *domain.RecordMeta { return &p.RecordMeta }),
	}
}

func (r *PolicyRepository) Create(ctx context.Context, policy *domain.SharePolicy) error {
	return r.base.create(ctx, policy)
}

func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SharePolicy, error) {
	return r.base.getByID(ctx, id)
}

func (r *PolicyRepository) ListByLink(ctx context.Context, shareLinkID uuid.UUID) ([]domain.SharePolicy, error) {
	result, err := r.base.list(ctx,
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("share_link_id = ?", shareLinkID).
				Where("deleted_at IS NULL").
				Order("created_at ASC")
		},
		withAllRows(),
	)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Delete removes the policy row. Policies are immutable and delete +
// recreate is the only update path, so no tombstone is kept.
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.base.conn(ctx).NewDelete().
		Model((*domain.SharePolicy)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
