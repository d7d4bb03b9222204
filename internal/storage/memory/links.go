package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

// LinkRepository is the in-memory store.SharedLinkRepository.
type LinkRepository struct {
	base baseMemoryRepo[domain.SharedLink]
}

var _ store.SharedLinkRepository = (*LinkRepository)(nil)

func NewLinkRepository() *LinkRepository {
	return &LinkRepository{
		base: newBaseMemoryRepo(func(l *domain.SharedLink) *domain.RecordMeta { return &l.RecordMeta }),
	}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.SharedLink) error {
	r.base.mu.Lock()
	defer r.base.mu.Unlock()

	for _, existing := range r.base.records {
		if existing.Token == link.Token {
			return store.ErrConflict
		}
	}

	link.EnsureID()
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	r.base.records[link.ID] = *link
	return nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SharedLink, error) {
	return r.base.getByID(id)
}

func (r *LinkRepository) GetByToken(ctx context.Context, tok string) (*domain.SharedLink, error) {
	r.base.mu.RLock()
	defer r.base.mu.RUnlock()

	for _, record := range r.base.records {
		if record.Token == tok && record.DeletedAt.IsZero() {
			out := record
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *LinkRepository) ListByTenant(ctx context.Context, tenantID string, filters store.SharedLinkFilters, opts store.ListOptions) (store.ListResult[domain.SharedLink], error) {
	items := r.base.snapshot(func(l *domain.SharedLink) bool {
		if l.TenantID != tenantID {
			return false
		}
		if filters.ResourceType != "" && l.ResourceType != filters.ResourceType {
			return false
		}
		if filters.RecipientEmail != "" && !strings.EqualFold(l.RecipientEmail, filters.RecipientEmail) {
			return false
		}
		return true
	})
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return paginate(items, opts), nil
}

func (r *LinkRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (time.Time, bool, error) {
	r.base.mu.Lock()
	defer r.base.mu.Unlock()

	record, ok := r.base.records[id]
	if !ok || !record.DeletedAt.IsZero() {
		return time.Time{}, false, store.ErrNotFound
	}
	if record.Viewed {
		return record.ViewedAt, false, nil
	}
	record.Viewed = true
	record.ViewedAt = at
	record.UpdatedAt = time.Now().UTC()
	r.base.records[id] = record
	return at, true, nil
}

func (r *LinkRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	r.base.mu.Lock()
	defer r.base.mu.Unlock()

	record, ok := r.base.records[id]
	if !ok || !record.DeletedAt.IsZero() {
		return store.ErrNotFound
	}
	if record.Revoked {
		return nil
	}
	record.Revoked = true
	record.UpdatedAt = time.Now().UTC()
	r.base.records[id] = record
	return nil
}
