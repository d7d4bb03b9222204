// Package resources defines the contract for fetching the shared
// resource (secret or document) from the system that owns it. Share
// links store only a reference; content is fetched at view time so a
// revoked or rotated resource is never served from a stale snapshot.
package resources

import (
	"context"
	"errors"

	"github.com/goliatone/go-sharelinks/pkg/domain"
)

// ErrResourceNotFound signals the referenced resource no longer exists
// upstream.
var ErrResourceNotFound = errors.New("resources: resource not found")

// ErrStoreUnavailable signals a transient upstream failure.
var ErrStoreUnavailable = errors.New("resources: store unavailable")

// Resource is the fetched content handed to an allowed viewer.
type Resource struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store fetches resources by tenant, type, and id.
type Store interface {
	Fetch(ctx context.Context, tenantID string, resourceType domain.ResourceType, resourceID string) (*Resource, error)
}
