package resources

import (
	"context"
	"sync"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
)

type memoryKey struct {
	tenantID     string
	resourceType domain.ResourceType
	resourceID   string
}

// MemoryStore is a map-backed resource store for tests and local
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[memoryKey]resources.Resource
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[memoryKey]resources.Resource)}
}

// Put registers a resource.
func (s *MemoryStore) Put(tenantID string, resourceType domain.ResourceType, resourceID string, res resources.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[memoryKey{tenantID, resourceType, resourceID}] = res
}

// Fetch implements resources.Store.
func (s *MemoryStore) Fetch(ctx context.Context, tenantID string, resourceType domain.ResourceType, resourceID string) (*resources.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.items[memoryKey{tenantID, resourceType, resourceID}]
	if !ok {
		return nil, resources.ErrResourceNotFound
	}
	out := res
	return &out, nil
}
