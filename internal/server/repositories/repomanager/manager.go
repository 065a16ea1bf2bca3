// Package repomanager owns the storage backends and hands out repositories,
// either directly or scoped to a unit of work.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/users"
)

// Repositories is the set of repositories visible to a unit of work.
type Repositories interface {
	Users() users.Repository
	Transactions() transactions.Repository
}

// RepositoryManager is the store injected into the services.
//
// Repositories obtained from the manager itself run each call on its own.
// WithTx runs fn against repositories bound to one atomic unit of work: it
// commits when fn returns nil and rolls back otherwise. fn may be invoked
// more than once when the backend asks for a retry.
type RepositoryManager interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	RunMigrations(ctx context.Context) error
	Close() error
}
