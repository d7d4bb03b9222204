package memory

import (
	"context"
	"sort"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

// PolicyRepository is the in-memory store.SharePolicyRepository.
type PolicyRepository struct {
	base baseMemoryRepo[domain.SharePolicy]
}

var _ store.SharePolicyRepository = (*PolicyRepository)(nil)

func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{
		base: newBaseMemoryRepo(func(p *domain.SharePolicy) *domain.RecordMeta { return &p.RecordMeta }),
	}
}

func (r *PolicyRepository) Create(ctx context.Context, policy *domain.SharePolicy) error {
	return r.base.create(policy)
}

func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SharePolicy, error) {
	return r.base.getByID(id)
}

func (r *PolicyRepository) ListByLink(ctx context.Context, shareLinkID uuid.UUID) ([]domain.SharePolicy, error) {
	items := r.base.snapshot(func(p *domain.SharePolicy) bool { return p.ShareLinkID == shareLinkID })
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// Delete removes the policy for good. Policies are immutable, so removal is
// a hard delete rather than the soft delete used elsewhere.
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.delete(id)
}
