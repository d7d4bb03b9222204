// Package memory provides map-backed repositories used by tests and
// embedders that do not need durable storage. Semantics mirror the bun
// implementations, including the first-view compare-and-set.
package memory

import (
	"sync"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

type baseMemoryRepo[T any] struct {
	mu      sync.RWMutex
	records map[uuid.UUID]T
	extract func(*T) *domain.RecordMeta
}

func newBaseMemoryRepo[T any](extract func(*T) *domain.RecordMeta) baseMemoryRepo[T] {
	return baseMemoryRepo[T]{
		records: make(map[uuid.UUID]T),
		extract: extract,
	}
}

func (r *baseMemoryRepo[T]) create(record *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.extract(record)
	base.EnsureID()
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	r.records[base.ID] = *record
	return nil
}

func (r *baseMemoryRepo[T]) update(record *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.extract(record)
	if base.ID == uuid.Nil {
		return store.ErrNotFound
	}
	if _, ok := r.records[base.ID]; !ok {
		return store.ErrNotFound
	}
	base.UpdatedAt = time.Now().UTC()
	r.records[base.ID] = *record
	return nil
}

func (r *baseMemoryRepo[T]) getByID(id uuid.UUID) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getByIDLocked(id)
}

// getByIDLocked assumes the caller holds at least a read lock.
func (r *baseMemoryRepo[T]) getByIDLocked(id uuid.UUID) (*T, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if base := r.extract(&record); !base.DeletedAt.IsZero() {
		return nil, store.ErrNotFound
	}
	out := record
	return &out, nil
}

func (r *baseMemoryRepo[T]) delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *baseMemoryRepo[T]) softDelete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return store.ErrNotFound
	}
	base := r.extract(&record)
	if !base.DeletedAt.IsZero() {
		return store.ErrNotFound
	}
	base.DeletedAt = time.Now().UTC()
	r.records[base.ID] = record
	return nil
}

// snapshot returns live records matching the filter, sorted newest first.
func (r *baseMemoryRepo[T]) snapshot(match func(*T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.records))
	for _, record := range r.records {
		rec := record
		if !r.extract(&rec).DeletedAt.IsZero() {
			continue
		}
		if match != nil && !match(&rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func paginate[T any](items []T, opts store.ListOptions) store.ListResult[T] {
	total := len(items)
	if opts.Offset > 0 {
		if opts.Offset >= total {
			items = nil
		} else {
			items = items[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return store.ListResult[T]{Items: items, Total: total}
}
