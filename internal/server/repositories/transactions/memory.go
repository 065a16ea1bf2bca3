package transactions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps the log in process memory. Like the users memory
// repository it relies on its manager for locking and records undo steps
// between Begin and Commit/Rollback.
type MemoryRepository struct {
	logs map[string][]*models.Transaction
	undo []func()
	inTx bool
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		logs: make(map[string][]*models.Transaction),
		now:  time.Now,
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

func (r *MemoryRepository) Rollback() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.inTx = false
	r.undo = nil
}

func (r *MemoryRepository) Append(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = r.now().UTC()
	}

	stored := *tx
	owner := tx.OwnerID
	prevLen := len(r.logs[owner])
	r.logs[owner] = append(r.logs[owner], &stored)
	if r.inTx {
		r.undo = append(r.undo, func() { r.logs[owner] = r.logs[owner][:prevLen] })
	}
	return nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Transaction, error) {
	log := r.logs[ownerID]
	result := make([]*models.Transaction, 0, len(log))
	for _, tx := range log {
		c := *tx
		result = append(result, &c)
	}
	return result, nil
}
