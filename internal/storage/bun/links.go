package bunrepo

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkRepository is the bun-backed store.SharedLinkRepository.
type LinkRepository struct {
	base baseRepository[domain.SharedLink]
}

var _ store.SharedLinkRepository = (*LinkRepository)(nil)

func NewLinkRepository(db *bun.DB) *LinkRepository {
	handlers := repository.ModelHandlers[*domain.SharedLink]{
		NewRecord:          func() *domain.SharedLink { return &domain.SharedLink{} },
		GetID:              func(l *domain.SharedLink) uuid.UUID { return l.ID },
		SetID:              func(l *domain.SharedLink, id uuid.UUID) { l.ID = id },
		GetIdentifier:      func() string { return "token" },
		GetIdentifierValue: func(l *domain.SharedLink) string { return l.Token },
	}
	return &LinkRepository{
		base: newBaseRepository(db, handlers, func(l *domain.SharedLink) *domain.RecordMeta { return &l.RecordMeta }),
	}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.SharedLink) error {
	return r.base.create(ctx, link)
}

func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SharedLink, error) {
	return r.base.getByID(ctx, id)
}

func (r *LinkRepository) GetByToken(ctx context.Context, tok string) (*domain.SharedLink, error) {
	return r.base.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("token = ?", tok)
	})
}

func (r *LinkRepository) ListByTenant(ctx context.Context, tenantID string, filters store.SharedLinkFilters, opts store.ListOptions) (store.ListResult[domain.SharedLink], error) {
	criteria := []repository.SelectCriteria{
		withTenant(tenantID),
		withListOptions(opts),
	}
	if filters.ResourceType != "" {
		rt := filters.ResourceType
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("resource_type = ?", string(rt))
		})
	}
	if filters.RecipientEmail != "" {
		email := strings.ToLower(filters.RecipientEmail)
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(recipient_email) = ?", email)
		})
	}
	return r.base.list(ctx, criteria...)
}

// MarkViewed is the exactly-once first-view transition: a conditional update
// guarded by the current viewed value. Losing the race is not an error; the
// caller reads back the winner's timestamp.
func (r *LinkRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (time.Time, bool, error) {
	res, err := r.base.conn(ctx).NewUpdate().
		Model((*domain.SharedLink)(nil)).
		Set("viewed = ?", true).
		Set("viewed_at = ?", at).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("viewed IS NOT TRUE").
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return time.Time{}, false, mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return at, true, nil
	}

	link, err := r.base.getByID(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	return link.ViewedAt, false, nil
}

func (r *LinkRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	res, err := r.base.conn(ctx).NewUpdate().
		Model((*domain.SharedLink)(nil)).
		Set("revoked = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
