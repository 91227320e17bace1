package identity

import (
	"context"
	"sync"
	"time"
)

// WalletOpener provisions the zero-balance wallet that accompanies every
// new account. The in-memory ledger satisfies it.
type WalletOpener interface {
	OpenWallet(ctx context.Context, accountID string, at time.Time) error
}

type memoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]Account
	byUsername map[string]string
	numbers    map[string]struct{}
	wallets    WalletOpener
}

// NewMemoryRepository builds an in-memory account store. wallets may be nil
// when no ledger is attached.
func NewMemoryRepository(wallets WalletOpener) Repository {
	return &memoryRepository{
		byID:       make(map[string]Account),
		byUsername: make(map[string]string),
		numbers:    make(map[string]struct{}),
		wallets:    wallets,
	}
}

func (r *memoryRepository) Create(ctx context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[account.Username]; exists {
		return ErrDuplicateUsername
	}
	if _, exists := r.numbers[account.AccountNumber]; exists {
		return ErrAccountNumberTaken
	}
	if r.wallets != nil {
		if err := r.wallets.OpenWallet(ctx, account.ID, account.CreatedAt); err != nil {
			return err
		}
	}
	r.byID[account.ID] = account
	r.byUsername[account.Username] = account.ID
	r.numbers[account.AccountNumber] = struct{}{}
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}
