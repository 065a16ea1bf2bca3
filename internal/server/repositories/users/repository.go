// Package users persists account records.
package users

import (
	"context"

	"github.com/dmitrijs2005/pocketledger/internal/server/models"
)

// Repository stores users. Usernames are normalised on the way in, so
// lookups are case and whitespace insensitive.
//
// Update writes every non-balance field and succeeds only when user.Version
// matches the stored version (common.ErrVersionConflict otherwise); on
// success user.Version is advanced. Balances change only through Debit and
// Credit, which do not touch the version.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// Debit subtracts value only when the balance covers it and returns the
	// new balance; common.ErrInsufficientBalance otherwise.
	Debit(ctx context.Context, id string, value int64) (int64, error)
	Credit(ctx context.Context, id string, value int64) (int64, error)
}
