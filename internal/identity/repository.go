package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitedunion/uubank/internal/storage"
)

const (
	usernameConstraint      = "accounts_username_key"
	accountNumberConstraint = "accounts_account_number_key"
)

// Repository persists accounts. Create must insert the account together
// with its zero-balance wallet as one atomic unit, returning
// ErrDuplicateUsername or ErrAccountNumberTaken on uniqueness conflicts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByUsername(ctx context.Context, username string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account and opens its wallet in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return fmt.Errorf("%w: account id", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storage.Classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	createdAt := account.CreatedAt.UTC()
	if _, err := tx.Exec(ctx, `INSERT INTO accounts (id, username, password_hash, full_name, contact, email, account_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		accountID, account.Username, account.PasswordHash, account.FullName, account.Contact, account.Email, account.AccountNumber, createdAt); err != nil {
		return mapInsertError(err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallets (account_id, balance, last_updated) VALUES ($1, 0, $2)`, accountID, createdAt); err != nil {
		return storage.Classify(err)
	}

	return storage.Classify(tx.Commit(ctx))
}

// FindByUsername fetches an account by its login name.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, password_hash, full_name, contact, email, account_number, created_at
        FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrAccountNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, username, password_hash, full_name, contact, email, account_number, created_at
        FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		account   Account
	)
	if err := row.Scan(&id, &account.Username, &account.PasswordHash, &account.FullName, &account.Contact, &account.Email, &account.AccountNumber, &createdAt); err != nil {
		err = storage.Classify(err)
		if errors.Is(err, storage.ErrNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	account.ID = id.String()
	account.CreatedAt = createdAt.UTC()
	return account, nil
}

func mapInsertError(err error) error {
	classified := storage.Classify(err)
	if !errors.Is(classified, storage.ErrAlreadyExists) {
		return classified
	}
	switch storage.Constraint(err) {
	case usernameConstraint:
		return ErrDuplicateUsername
	case accountNumberConstraint:
		return ErrAccountNumberTaken
	default:
		return classified
	}
}
