package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. One mutex
// serialises every call and every unit of work; rollbacks replay the
// repositories' undo logs.
type MemoryRepositoryManager struct {
	mu    sync.Mutex
	users *users.MemoryRepository
	txs   *transactions.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users: users.NewMemoryRepository(),
		txs:   transactions.NewMemoryRepository(),
	}
}

type memRepos struct {
	users *users.MemoryRepository
	txs   *transactions.MemoryRepository
}

func (r memRepos) Users() users.Repository               { return r.users }
func (r memRepos) Transactions() transactions.Repository { return r.txs }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.users.Begin()
	m.txs.Begin()

	defer func() {
		if p := recover(); p != nil {
			m.txs.Rollback()
			m.users.Rollback()
			panic(p)
		}
		if err != nil {
			m.txs.Rollback()
			m.users.Rollback()
			return
		}
		m.txs.Commit()
		m.users.Commit()
	}()

	err = fn(ctx, memRepos{users: m.users, txs: m.txs})
	return err
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return lockedUsers{m: m}
}

func (m *MemoryRepositoryManager) Transactions() transactions.Repository {
	return lockedTransactions{m: m}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }

// lockedUsers guards single calls made outside a unit of work.
type lockedUsers struct {
	m *MemoryRepositoryManager
}

func (l lockedUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.Create(ctx, user)
}

func (l lockedUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.GetByID(ctx, id)
}

func (l lockedUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.GetByUsername(ctx, username)
}

func (l lockedUsers) Update(ctx context.Context, user *models.User) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.Update(ctx, user)
}

func (l lockedUsers) Debit(ctx context.Context, id string, value int64) (int64, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.Debit(ctx, id, value)
}

func (l lockedUsers) Credit(ctx context.Context, id string, value int64) (int64, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.users.Credit(ctx, id, value)
}

type lockedTransactions struct {
	m *MemoryRepositoryManager
}

func (l lockedTransactions) Append(ctx context.Context, tx *models.Transaction) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.txs.Append(ctx, tx)
}

func (l lockedTransactions) ListByOwner(ctx context.Context, ownerID string) ([]*models.Transaction, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.m.txs.ListByOwner(ctx, ownerID)
}
