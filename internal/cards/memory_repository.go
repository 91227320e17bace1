package cards

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byAccount map[string][]Card
}

// NewMemoryRepository returns an in-memory card store.
func NewMemoryRepository() Repository {
	return &memoryRepository{byAccount: make(map[string][]Card)}
}

func (r *memoryRepository) Replace(_ context.Context, card Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cards := r.byAccount[card.AccountID]
	for i := range cards {
		if cards[i].Status == StatusActive {
			cards[i].Status = StatusInactive
		}
	}
	r.byAccount[card.AccountID] = append(cards, card)
	return nil
}

func (r *memoryRepository) Active(_ context.Context, accountID string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := r.byAccount[accountID]
	for i := len(cards) - 1; i >= 0; i-- {
		if cards[i].Status == StatusActive {
			return cards[i], nil
		}
	}
	return Card{}, ErrNoActiveCard
}
