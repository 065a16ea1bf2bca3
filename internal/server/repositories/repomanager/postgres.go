package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pocketledger/internal/dbx"
	"github.com/dmitrijs2005/pocketledger/internal/server/migrations"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories over a
// *sql.DB opened with the pgx stdlib driver.
type PostgresRepositoryManager struct {
	db            *sql.DB
	retryAttempts int
}

type pgRepos struct {
	db dbx.DBTX
}

func (r pgRepos) Users() users.Repository { return users.NewPostgresRepository(r.db) }
func (r pgRepos) Transactions() transactions.Repository {
	return transactions.NewPostgresRepository(r.db)
}

// Users returns a users.Repository bound to the connection pool.
func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db)
}

// Transactions returns a transactions.Repository bound to the connection pool.
func (m *PostgresRepositoryManager) Transactions() transactions.Repository {
	return transactions.NewPostgresRepository(m.db)
}

// WithTx runs fn in a READ COMMITTED transaction. Serialization failures and
// deadlocks restart the whole transaction.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return dbx.WithTxRetry(ctx, m.db, opts, m.retryAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, pgRepos{db: tx})
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager
// over an already opened pool.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{db: db, retryAttempts: dbx.DefaultRetryAttempts}, nil
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenPostgres opens a pool for dsn, checks connectivity and wraps it.
func OpenPostgres(ctx context.Context, dsn string) (RepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresRepositoryManager(db)
}
