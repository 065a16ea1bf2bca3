package users

import (
	"context"
	"math"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. It does no locking of its
// own: the owning repository manager serialises access. Between Begin and
// Commit/Rollback every mutation records an undo step.
type MemoryRepository struct {
	byID   map[string]*models.User
	byName map[string]string
	undo   []func()
	inTx   bool
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*models.User),
		byName: make(map[string]string),
		now:    time.Now,
	}
}

func (r *MemoryRepository) Begin() {
	r.inTx = true
	r.undo = r.undo[:0]
}

func (r *MemoryRepository) Commit() {
	r.inTx = false
	r.undo = nil
}

// Rollback replays the undo log newest first.
func (r *MemoryRepository) Rollback() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.inTx = false
	r.undo = nil
}

func (r *MemoryRepository) record(step func()) {
	if r.inTx {
		r.undo = append(r.undo, step)
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	name := common.NormalizeUsername(user.Username)
	if _, ok := r.byName[name]; ok {
		return nil, common.ErrDuplicateUsername
	}

	stored := user.Clone()
	stored.ID = uuid.NewString()
	stored.Username = name
	stored.Version = 1
	stored.CreatedAt = r.now()

	r.byID[stored.ID] = stored
	r.byName[name] = stored.ID
	r.record(func() {
		delete(r.byID, stored.ID)
		delete(r.byName, name)
	})

	return stored.Clone(), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	id, ok := r.byName[common.NormalizeUsername(username)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) Update(_ context.Context, user *models.User) error {
	current, ok := r.byID[user.ID]
	if !ok || current.Version != user.Version {
		return common.ErrVersionConflict
	}

	next := user.Clone()
	next.Username = current.Username
	next.Balance = current.Balance
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1

	r.byID[user.ID] = next
	r.record(func() { r.byID[user.ID] = current })

	user.Version = next.Version
	return nil
}

func (r *MemoryRepository) setBalance(u *models.User, balance int64) {
	prev := u.Balance
	u.Balance = balance
	r.record(func() { u.Balance = prev })
}

func (r *MemoryRepository) Debit(_ context.Context, id string, value int64) (int64, error) {
	u, ok := r.byID[id]
	if !ok || u.Balance < value {
		return 0, common.ErrInsufficientBalance
	}
	r.setBalance(u, u.Balance-value)
	return u.Balance, nil
}

func (r *MemoryRepository) Credit(_ context.Context, id string, value int64) (int64, error) {
	u, ok := r.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if value > math.MaxInt64-u.Balance {
		return 0, common.ErrBalanceOverflow
	}
	r.setBalance(u, u.Balance+value)
	return u.Balance, nil
}
