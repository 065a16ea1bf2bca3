package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/dbx"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateUniqueViolation   = "23505"
	sqlStateNumericOutOfRange = "22003"
)

const userColumns = `id, username, password_hash, revocation_marker, recovery_method, phrase_hash,
       email, email_verified, transaction_logging, sms_number, balance, is_admin, is_guest,
       version, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// recoveryColumns flattens the recovery variant into its table columns.
func recoveryColumns(r models.Recovery) (method string, phraseHash []byte, email sql.NullString, verified bool, err error) {
	switch v := r.(type) {
	case models.PhraseRecovery:
		return string(models.RecoveryPhrase), v.Hash, sql.NullString{}, false, nil
	case models.EmailRecovery:
		return string(models.RecoveryEmail), nil, sql.NullString{String: v.Address, Valid: true}, v.Verified, nil
	default:
		return "", nil, sql.NullString{}, false, fmt.Errorf("unsupported recovery %T", r)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u          models.User
		method     string
		phraseHash []byte
		email      sql.NullString
		verified   bool
		sms        sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RevocationMarker, &method, &phraseHash,
		&email, &verified, &u.Settings.TransactionLogging, &sms, &u.Balance, &u.IsAdmin, &u.IsGuest,
		&u.Version, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	switch models.RecoveryMethod(method) {
	case models.RecoveryPhrase:
		u.Recovery = models.PhraseRecovery{Hash: phraseHash}
	case models.RecoveryEmail:
		u.Recovery = models.EmailRecovery{Address: email.String, Verified: verified}
	default:
		return nil, fmt.Errorf("unknown recovery method %q", method)
	}
	if sms.Valid {
		n := sms.String
		u.Settings.SMSNotificationNumber = &n
	}
	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	method, phraseHash, email, verified, err := recoveryColumns(user.Recovery)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (username, password_hash, revocation_marker, recovery_method, phrase_hash,
		                    email, email_verified, transaction_logging, sms_number, balance, is_admin, is_guest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, version, created_at`

	created := user.Clone()
	created.Username = common.NormalizeUsername(user.Username)

	err = r.db.QueryRowContext(ctx, query,
		created.Username, created.PasswordHash, created.RevocationMarker, method, phraseHash,
		email, verified, created.Settings.TransactionLogging, nullString(created.Settings.SMSNotificationNumber),
		created.Balance, created.IsAdmin, created.IsGuest,
	).Scan(&created.ID, &created.Version, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `username = $1`, common.NormalizeUsername(username))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	method, phraseHash, email, verified, err := recoveryColumns(user.Recovery)
	if err != nil {
		return err
	}

	query :=
		`UPDATE users
		    SET password_hash = $2, revocation_marker = $3, recovery_method = $4, phrase_hash = $5,
		        email = $6, email_verified = $7, transaction_logging = $8, sms_number = $9,
		        is_admin = $10, is_guest = $11, version = version + 1
		  WHERE id = $1 AND version = $12
		  RETURNING version`

	var version int64
	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.PasswordHash, user.RevocationMarker, method, phraseHash,
		email, verified, user.Settings.TransactionLogging, nullString(user.Settings.SMSNotificationNumber),
		user.IsAdmin, user.IsGuest, user.Version,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	user.Version = version
	return nil
}

func (r *PostgresRepository) Debit(ctx context.Context, id string, value int64) (int64, error) {
	query :=
		`UPDATE users SET balance = balance - $2
		  WHERE id = $1 AND balance >= $2
		  RETURNING balance`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, id, value).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Credit(ctx context.Context, id string, value int64) (int64, error) {
	query :=
		`UPDATE users SET balance = balance + $2
		  WHERE id = $1
		  RETURNING balance`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, id, value).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateNumericOutOfRange {
			return 0, common.ErrBalanceOverflow
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}
