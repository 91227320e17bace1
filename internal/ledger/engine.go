package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unitedunion/uubank/internal/config"
	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/money"
)

// Accounts resolves transfer recipients.
type Accounts interface {
	FindByUsername(ctx context.Context, username string) (identity.Account, error)
}

// Engine enforces the deposit and transfer rules on top of a Store.
type Engine struct {
	store    Store
	accounts Accounts
	limits   config.Limits
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine builds a ledger engine.
func NewEngine(store Store, accounts Accounts, limits config.Limits, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		accounts: accounts,
		limits:   limits,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Limits returns the monetary policy the engine was configured with.
func (e *Engine) Limits() config.Limits {
	return e.limits
}

// Deposit credits an external deposit to the account's wallet.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (DepositResult, error) {
	if money.CheckScale(amount) != nil || !money.Within(amount, e.limits.DepositMin, e.limits.DepositMax) {
		return DepositResult{}, fmt.Errorf("%w: deposit must be between %s and %s", ErrInvalidAmount,
			money.Format(e.limits.DepositMin), money.Format(e.limits.DepositMax))
	}

	res, err := e.store.Deposit(ctx, accountID, amount, description, e.now())
	if err != nil {
		return DepositResult{}, err
	}
	e.logger.Info("deposit completed",
		slog.String("account_id", accountID),
		slog.Int64("record_id", res.Record.ID),
		slog.String("amount", money.Format(amount)),
	)
	return res, nil
}

// Transfer moves funds from the sender to the account registered under
// recipientUsername. The daily transfer limit is not enforced here.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientUsername string, amount decimal.Decimal, description string) (TransferResult, error) {
	if !amount.IsPositive() || amount.GreaterThan(e.limits.TransferMax) || money.CheckScale(amount) != nil {
		return TransferResult{}, fmt.Errorf("%w: transfer must be greater than 0 and at most %s", ErrInvalidAmount,
			money.Format(e.limits.TransferMax))
	}

	recipient, err := e.accounts.FindByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, identity.ErrAccountNotFound) {
			return TransferResult{}, ErrRecipientNotFound
		}
		return TransferResult{}, err
	}
	if recipient.ID == senderID {
		return TransferResult{}, ErrSelfTransfer
	}

	res, err := e.store.Transfer(ctx, senderID, recipient.ID, amount, description, e.now())
	if err != nil {
		return TransferResult{}, err
	}
	e.logger.Info("transfer completed",
		slog.String("sender_id", senderID),
		slog.String("recipient_id", recipient.ID),
		slog.Int64("record_id", res.Record.ID),
		slog.String("amount", money.Format(amount)),
	)
	return res, nil
}

// Balance returns the current balance of the account's wallet.
func (e *Engine) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	w, err := e.store.Wallet(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return w.Balance, nil
}

// Wallet returns the account's wallet.
func (e *Engine) Wallet(ctx context.Context, accountID string) (Wallet, error) {
	return e.store.Wallet(ctx, accountID)
}

// Transactions lists the account's records newest first. The sequence is
// evaluated lazily and each range over it starts from a fresh snapshot.
func (e *Engine) Transactions(ctx context.Context, accountID string, filter Filter) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		emitted := 0
		for rec, err := range e.store.Records(ctx, accountID, filter) {
			if err != nil {
				yield(Record{}, err)
				return
			}
			if filter.Where != nil && !filter.Where(rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
			emitted++
			if filter.Limit > 0 && emitted >= filter.Limit {
				return
			}
		}
	}
}

// Summary aggregates an account's activity between from (inclusive) and to
// (exclusive).
type Summary struct {
	Deposits decimal.Decimal
	Sent     decimal.Decimal
	Received decimal.Decimal
	Count    int
}

// Net is the balance change over the summarized period.
func (s Summary) Net() decimal.Decimal {
	return s.Deposits.Add(s.Received).Sub(s.Sent)
}

// NewSummary returns an empty summary with zeroed totals.
func NewSummary() Summary {
	return Summary{Deposits: decimal.Zero, Sent: decimal.Zero, Received: decimal.Zero}
}

// Add folds one of the account's records into the totals.
func (s *Summary) Add(accountID string, rec Record) {
	s.Count++
	switch {
	case rec.Kind == KindDeposit:
		s.Deposits = s.Deposits.Add(rec.Amount)
	case rec.SenderID == accountID:
		s.Sent = s.Sent.Add(rec.Amount)
	default:
		s.Received = s.Received.Add(rec.Amount)
	}
}

// Summarize totals the account's deposits and transfers in a period.
func (e *Engine) Summarize(ctx context.Context, accountID string, from, to time.Time) (Summary, error) {
	sum := NewSummary()
	for rec, err := range e.Transactions(ctx, accountID, Filter{From: from, To: to}) {
		if err != nil {
			return Summary{}, err
		}
		sum.Add(accountID, rec)
	}
	return sum, nil
}
