package ledger

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount covers non-positive amounts, amounts outside the
	// configured bounds and amounts finer than currency precision.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds occurs when the sender's balance cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRecipientNotFound indicates the transfer recipient username is unknown.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrSelfTransfer indicates the recipient resolves to the sender.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrWalletNotFound indicates no wallet exists for the account.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Kind classifies a transaction record.
type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindTransfer Kind = "TRANSFER"
)

// Status is the settlement state of a record. Only completed records exist.
type Status string

const StatusCompleted Status = "COMPLETED"

// Wallet is the balance held by one account.
type Wallet struct {
	AccountID   string
	Balance     decimal.Decimal
	LastUpdated time.Time
}

// Record is an immutable ledger entry. SenderID is empty for deposits.
type Record struct {
	ID          int64
	SenderID    string
	ReceiverID  string
	Amount      decimal.Decimal
	Kind        Kind
	Description string
	Status      Status
	CreatedAt   time.Time
}

// Involves reports whether the account sent or received the record.
func (r Record) Involves(accountID string) bool {
	return r.SenderID == accountID || r.ReceiverID == accountID
}

// DepositResult captures the outcome of a deposit.
type DepositResult struct {
	Record  Record
	Balance decimal.Decimal
}

// TransferResult captures the outcome of a transfer.
type TransferResult struct {
	Record           Record
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// Filter narrows a transaction listing. Zero values disable each clause.
// From is inclusive and To exclusive. Where is applied after the store
// filters and before Limit is counted.
type Filter struct {
	Kind  Kind
	From  time.Time
	To    time.Time
	Limit int
	Where func(Record) bool
}

func (f Filter) matches(r Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

// Store applies balance mutations and appends records atomically. Deposit
// and Transfer either commit the balance change(s) together with exactly one
// record or change nothing.
type Store interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string, at time.Time) (DepositResult, error)
	Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal, description string, at time.Time) (TransferResult, error)
	Wallet(ctx context.Context, accountID string) (Wallet, error)
	// Records yields the account's records newest first. Every range over
	// the returned sequence reads a fresh snapshot. Filter.Where and
	// Filter.Limit are left to the caller.
	Records(ctx context.Context, accountID string, filter Filter) iter.Seq2[Record, error]
}
