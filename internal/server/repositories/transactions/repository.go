// Package transactions declares the repository contract for the per-owner
// transaction log.
package transactions

import (
	"context"

	"github.com/dmitrijs2005/pocketledger/internal/server/models"
)

// Repository appends to and reads the transaction log. Records are never
// modified once written.
type Repository interface {
	// Append stores tx in the log of tx.OwnerID. ID and Timestamp are
	// assigned when empty.
	Append(ctx context.Context, tx *models.Transaction) error

	// ListByOwner returns the owner's log, oldest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Transaction, error)
}
