package ledger

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// InMemory is a concurrency-safe ledger store. A single mutex serializes
// every mutation so paired debit, credit and record append are observed
// together or not at all.
type InMemory struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
	records []Record
	nextID  int64
}

// NewInMemory creates an in-memory ledger store useful for tests and local development.
func NewInMemory() *InMemory {
	return &InMemory{wallets: make(map[string]Wallet)}
}

// OpenWallet creates a zero-balance wallet. Opening an existing wallet is a no-op.
func (l *InMemory) OpenWallet(_ context.Context, accountID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wallets[accountID]; !exists {
		l.wallets[accountID] = Wallet{AccountID: accountID, Balance: decimal.Zero, LastUpdated: at}
	}
	return nil
}

func (l *InMemory) Deposit(_ context.Context, accountID string, amount decimal.Decimal, description string, at time.Time) (DepositResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[accountID]
	if !ok {
		return DepositResult{}, ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	w.LastUpdated = at
	l.wallets[accountID] = w

	rec := l.appendLocked(Record{
		ReceiverID:  accountID,
		Amount:      amount,
		Kind:        KindDeposit,
		Description: description,
		CreatedAt:   at,
	})
	return DepositResult{Record: rec, Balance: w.Balance}, nil
}

func (l *InMemory) Transfer(_ context.Context, senderID, recipientID string, amount decimal.Decimal, description string, at time.Time) (TransferResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.wallets[senderID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	to, ok := l.wallets[recipientID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if from.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	from.Balance = from.Balance.Sub(amount)
	from.LastUpdated = at
	to.Balance = to.Balance.Add(amount)
	to.LastUpdated = at
	l.wallets[senderID] = from
	l.wallets[recipientID] = to

	rec := l.appendLocked(Record{
		SenderID:    senderID,
		ReceiverID:  recipientID,
		Amount:      amount,
		Kind:        KindTransfer,
		Description: description,
		CreatedAt:   at,
	})
	return TransferResult{Record: rec, SenderBalance: from.Balance, RecipientBalance: to.Balance}, nil
}

func (l *InMemory) Wallet(_ context.Context, accountID string) (Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[accountID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (l *InMemory) Records(_ context.Context, accountID string, filter Filter) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range l.snapshot(accountID, filter) {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (l *InMemory) snapshot(accountID string, filter Filter) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.Involves(accountID) && filter.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (l *InMemory) appendLocked(rec Record) Record {
	l.nextID++
	rec.ID = l.nextID
	rec.Status = StatusCompleted
	l.records = append(l.records, rec)
	return rec
}
