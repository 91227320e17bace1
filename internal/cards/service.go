package cards

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service issues virtual cards. Each account holds at most one active card.
type Service struct {
	repo   Repository
	gen    generator
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gen: newGenerator(), logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Issue retires the account's active card, if any, and issues a new one.
func (s *Service) Issue(ctx context.Context, accountID string) (Card, error) {
	number, err := s.gen.number()
	if err != nil {
		return Card{}, err
	}
	cvv, err := s.gen.cvv()
	if err != nil {
		return Card{}, err
	}
	now := s.now()
	card := Card{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Number:    number,
		Expiry:    expiry(now),
		CVV:       cvv,
		Status:    StatusActive,
		CreatedAt: now,
	}
	if err := s.repo.Replace(ctx, card); err != nil {
		return Card{}, err
	}
	s.logger.Info("virtual card issued", slog.String("account_id", accountID), slog.String("card_id", card.ID))
	return card, nil
}

// Active returns the account's active card or ErrNoActiveCard.
func (s *Service) Active(ctx context.Context, accountID string) (Card, error) {
	return s.repo.Active(ctx, accountID)
}
