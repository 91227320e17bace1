package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/unitedunion/uubank/internal/storage"
)

// PostgresLedger keeps wallets and the append-only transactions table in PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger store.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const insertRecord = `INSERT INTO transactions (sender_id, receiver_id, amount, kind, description, status, created_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7) RETURNING id`

// Deposit credits the wallet and appends the DEPOSIT record in one transaction.
func (l *PostgresLedger) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string, at time.Time) (DepositResult, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return DepositResult{}, ErrWalletNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DepositResult{}, storage.Classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balanceText string
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1::numeric, last_updated = $2
        WHERE account_id = $3 RETURNING balance::text`, amount.String(), at, id).Scan(&balanceText)
	if err != nil {
		return DepositResult{}, walletError(err)
	}

	rec := Record{ReceiverID: accountID, Amount: amount, Kind: KindDeposit, Description: description, Status: StatusCompleted, CreatedAt: at}
	if err := tx.QueryRow(ctx, insertRecord, nil, id, amount.String(), string(rec.Kind), description, string(rec.Status), at).Scan(&rec.ID); err != nil {
		return DepositResult{}, storage.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DepositResult{}, storage.Classify(err)
	}

	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return DepositResult{}, fmt.Errorf("decode balance: %w", err)
	}
	return DepositResult{Record: rec, Balance: balance}, nil
}

// Transfer locks both wallets in account-id order, so two opposite transfers
// cannot deadlock, then debits, credits and appends the TRANSFER record.
func (l *PostgresLedger) Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal, description string, at time.Time) (TransferResult, error) {
	fromID, err := uuid.Parse(senderID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}
	toID, err := uuid.Parse(recipientID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, storage.Classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rows, err := tx.Query(ctx, `SELECT account_id, balance::text FROM wallets
        WHERE account_id IN ($1, $2) ORDER BY account_id FOR UPDATE`, fromID, toID)
	if err != nil {
		return TransferResult{}, storage.Classify(err)
	}
	balances := make(map[uuid.UUID]decimal.Decimal, 2)
	for rows.Next() {
		var (
			id   uuid.UUID
			text string
		)
		if err := rows.Scan(&id, &text); err != nil {
			rows.Close()
			return TransferResult{}, storage.Classify(err)
		}
		bal, err := decimal.NewFromString(text)
		if err != nil {
			rows.Close()
			return TransferResult{}, fmt.Errorf("decode balance: %w", err)
		}
		balances[id] = bal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return TransferResult{}, storage.Classify(err)
	}

	fromBalance, ok := balances[fromID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	toBalance, ok := balances[toID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if fromBalance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	const move = `UPDATE wallets SET balance = balance + $1::numeric, last_updated = $2 WHERE account_id = $3`
	if _, err := tx.Exec(ctx, move, amount.Neg().String(), at, fromID); err != nil {
		return TransferResult{}, storage.Classify(err)
	}
	if _, err := tx.Exec(ctx, move, amount.String(), at, toID); err != nil {
		return TransferResult{}, storage.Classify(err)
	}

	rec := Record{SenderID: senderID, ReceiverID: recipientID, Amount: amount, Kind: KindTransfer, Description: description, Status: StatusCompleted, CreatedAt: at}
	if err := tx.QueryRow(ctx, insertRecord, fromID, toID, amount.String(), string(rec.Kind), description, string(rec.Status), at).Scan(&rec.ID); err != nil {
		return TransferResult{}, storage.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, storage.Classify(err)
	}

	return TransferResult{
		Record:           rec,
		SenderBalance:    fromBalance.Sub(amount),
		RecipientBalance: toBalance.Add(amount),
	}, nil
}

// Wallet fetches the wallet row for the account.
func (l *PostgresLedger) Wallet(ctx context.Context, accountID string) (Wallet, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	var (
		text string
		w    = Wallet{AccountID: accountID}
	)
	if err := l.db.QueryRow(ctx, `SELECT balance::text, last_updated FROM wallets WHERE account_id = $1`, id).Scan(&text, &w.LastUpdated); err != nil {
		return Wallet{}, walletError(err)
	}
	if w.Balance, err = decimal.NewFromString(text); err != nil {
		return Wallet{}, fmt.Errorf("decode balance: %w", err)
	}
	w.LastUpdated = w.LastUpdated.UTC()
	return w, nil
}

// Records streams the account's records newest first straight from the cursor.
func (l *PostgresLedger) Records(ctx context.Context, accountID string, filter Filter) iter.Seq2[Record, error] {
	const query = `
        SELECT id, COALESCE(sender_id::text, ''), COALESCE(receiver_id::text, ''), amount::text,
               kind, description, status, created_at
        FROM transactions
        WHERE (sender_id = $1 OR receiver_id = $1)
          AND ($2 = '' OR kind = $2)
          AND ($3::timestamptz IS NULL OR created_at >= $3)
          AND ($4::timestamptz IS NULL OR created_at < $4)
        ORDER BY id DESC`

	return func(yield func(Record, error) bool) {
		id, err := uuid.Parse(accountID)
		if err != nil {
			return
		}
		rows, err := l.db.Query(ctx, query, id, string(filter.Kind), optionalTime(filter.From), optionalTime(filter.To))
		if err != nil {
			yield(Record{}, storage.Classify(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rec          Record
				amount       string
				kind, status string
			)
			if err := rows.Scan(&rec.ID, &rec.SenderID, &rec.ReceiverID, &amount, &kind, &rec.Description, &status, &rec.CreatedAt); err != nil {
				yield(Record{}, storage.Classify(err))
				return
			}
			if rec.Amount, err = decimal.NewFromString(amount); err != nil {
				yield(Record{}, fmt.Errorf("decode amount: %w", err))
				return
			}
			rec.Kind, rec.Status = Kind(kind), Status(status)
			rec.CreatedAt = rec.CreatedAt.UTC()
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, storage.Classify(err))
		}
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func walletError(err error) error {
	err = storage.Classify(err)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrWalletNotFound
	}
	return err
}
