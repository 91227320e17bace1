package cards

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

// Repository persists virtual cards. Replace deactivates every active card
// of the account and stores the new one as a single unit.
type Repository interface {
	Replace(ctx context.Context, card Card) error
	Active(ctx context.Context, accountID string) (Card, error)
}

// PostgresRepository stores cards in the virtual_cards table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Replace(ctx context.Context, card Card) error {
	cardID, err := uuid.Parse(card.ID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(card.AccountID)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storage.Classify(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE virtual_cards SET status = $2 WHERE account_id = $1 AND status = $3`,
		accountID, string(StatusInactive), string(StatusActive)); err != nil {
		return storage.Classify(err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO virtual_cards (id, account_id, card_number, expiry, cvv, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cardID, accountID, card.Number, card.Expiry, card.CVV, string(card.Status), card.CreatedAt.UTC()); err != nil {
		return storage.Classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) Active(ctx context.Context, accountID string) (Card, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Card{}, ErrNoActiveCard
	}
	row := r.db.QueryRow(ctx, `SELECT id, account_id, card_number, expiry, cvv, status, created_at
        FROM virtual_cards WHERE account_id = $1 AND status = $2
        ORDER BY created_at DESC LIMIT 1`, id, string(StatusActive))

	var (
		c         Card
		cardID    uuid.UUID
		ownerID   uuid.UUID
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&cardID, &ownerID, &c.Number, &c.Expiry, &c.CVV, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNoActiveCard
		}
		return Card{}, fmt.Errorf("load active card: %w", storage.Classify(err))
	}
	c.ID = cardID.String()
	c.AccountID = ownerID.String()
	c.Status = Status(status)
	c.CreatedAt = createdAt.UTC()
	return c, nil
}
