package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/dbx"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	query :=
		`INSERT INTO transactions (id, owner_id, sender, receiver, value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, tx.ID, tx.OwnerID, tx.Sender, tx.Receiver, tx.Value, tx.Timestamp)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Transaction, error) {
	query :=
		`SELECT id, owner_id, sender, receiver, value, created_at
		   FROM transactions
		  WHERE owner_id = $1
		  ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Transaction, 0)
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.Sender, &tx.Receiver, &tx.Value, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}
