// Package storage wires repository implementations behind the store
// interfaces so services stay backend-agnostic.
package storage

import (
	"context"
	"database/sql"

	persistence "github.com/goliatone/go-persistence-bun"
	bunrepo "github.com/goliatone/go-sharelinks/internal/storage/bun"
	"github.com/goliatone/go-sharelinks/internal/storage/memory"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/uptrace/bun"
)

// Providers exposes all repositories needed by services.
type Providers struct {
	Links       store.SharedLinkRepository
	Policies    store.SharePolicyRepository
	Templates   store.EmailTemplateRepository
	Transaction store.TransactionManager
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders() Providers {
	return Providers{
		Links:       memory.NewLinkRepository(),
		Policies:    memory.NewPolicyRepository(),
		Templates:   memory.NewTemplateRepository(),
		Transaction: &store.NopTransactionManager{},
	}
}

// NewBunProviders wires Bun-backed repositories using go-repository-bun.
// The caller owns the *bun.DB instance and its lifecycle.
func NewBunProviders(db *bun.DB) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(
		(*domain.SharedLink)(nil),
		(*domain.SharePolicy)(nil),
		(*domain.EmailTemplate)(nil),
	)

	return Providers{
		Links:       bunrepo.NewLinkRepository(db),
		Policies:    bunrepo.NewPolicyRepository(db),
		Templates:   bunrepo.NewTemplateRepository(db),
		Transaction: &bunTxManager{db: db},
	}
}

type bunTxManager struct {
	db *bun.DB
}

func (m *bunTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Repository calls resolve the transaction from the context;
		// without this they would run on the pool and escape rollback.
		return fn(bunrepo.WithTx(ctx, tx))
	})
}
