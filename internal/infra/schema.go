package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent; constraint names are matched by the repositories.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id UUID PRIMARY KEY,
        username TEXT NOT NULL,
        password_hash BYTEA NOT NULL,
        full_name TEXT NOT NULL,
        contact TEXT NOT NULL,
        email TEXT NOT NULL,
        account_number TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        CONSTRAINT accounts_username_key UNIQUE (username),
        CONSTRAINT accounts_account_number_key UNIQUE (account_number)
    )`,
	`CREATE TABLE IF NOT EXISTS wallets (
        account_id UUID PRIMARY KEY REFERENCES accounts (id),
        balance NUMERIC(18, 2) NOT NULL DEFAULT 0,
        last_updated TIMESTAMPTZ NOT NULL,
        CONSTRAINT wallets_balance_non_negative CHECK (balance >= 0)
    )`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id BIGSERIAL PRIMARY KEY,
        sender_id UUID REFERENCES accounts (id),
        receiver_id UUID REFERENCES accounts (id),
        amount NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
        kind TEXT NOT NULL CHECK (kind IN ('DEPOSIT', 'TRANSFER')),
        description TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_id, id DESC)`,
	`CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS virtual_cards (
        id UUID PRIMARY KEY,
        account_id UUID NOT NULL REFERENCES accounts (id),
        card_number TEXT NOT NULL UNIQUE,
        expiry TEXT NOT NULL,
        cvv TEXT NOT NULL,
        status TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS virtual_cards_one_active_idx ON virtual_cards (account_id) WHERE status = 'ACTIVE'`,
}

// EnsureSchema creates the tables the service needs when they are missing.
// It does not migrate existing tables.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
