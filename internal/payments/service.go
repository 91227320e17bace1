package payments

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unitedunion/uubank/internal/config"
	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/ledger"
	"github.com/unitedunion/uubank/internal/money"
	"github.com/unitedunion/uubank/internal/notification"
)

// Accounts resolves notification destinations.
type Accounts interface {
	FindByID(ctx context.Context, id string) (identity.Account, error)
}

// Service fronts the ledger engine for HTTP callers and tells customers
// about money that moved. Notification never affects the outcome.
type Service struct {
	engine   *ledger.Engine
	accounts Accounts
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service. notifier may be nil.
func NewService(engine *ledger.Engine, accounts Accounts, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, accounts: accounts, notifier: notifier, logger: logger}
}

// Deposit credits the account and confirms to the depositor.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (ledger.DepositResult, error) {
	res, err := s.engine.Deposit(ctx, accountID, amount, description)
	if err != nil {
		return ledger.DepositResult{}, err
	}
	s.notify(ctx, accountID, notification.KindDepositCompleted,
		fmt.Sprintf("Deposit of %s completed. New balance %s", money.Format(amount), money.Format(res.Balance)))
	return res, nil
}

// Transfer sends amount to the customer registered as recipientUsername.
func (s *Service) Transfer(ctx context.Context, senderID, recipientUsername string, amount decimal.Decimal, description string) (ledger.TransferResult, error) {
	res, err := s.engine.Transfer(ctx, senderID, recipientUsername, amount, description)
	if err != nil {
		return ledger.TransferResult{}, err
	}

	from := senderID
	if sender, err := s.accounts.FindByID(ctx, senderID); err == nil {
		from = sender.Username
	}
	s.notify(ctx, res.Record.ReceiverID, notification.KindTransferReceived,
		fmt.Sprintf("You received %s from %s", money.Format(amount), from))
	return res, nil
}

// Balance returns the account's wallet.
func (s *Service) Balance(ctx context.Context, accountID string) (ledger.Wallet, error) {
	return s.engine.Wallet(ctx, accountID)
}

// Transactions lists the account's records newest first.
func (s *Service) Transactions(ctx context.Context, accountID string, filter ledger.Filter) iter.Seq2[ledger.Record, error] {
	return s.engine.Transactions(ctx, accountID, filter)
}

// Statement is the activity of one account over a period.
type Statement struct {
	AccountID string
	From      time.Time
	To        time.Time
	Summary   ledger.Summary
	Balance   decimal.Decimal
	Records   []ledger.Record
}

// Statement collects totals and records for [from, to). Totals are folded
// from the same read that produces the records; the balance is read after.
func (s *Service) Statement(ctx context.Context, accountID string, from, to time.Time) (Statement, error) {
	st := Statement{AccountID: accountID, From: from, To: to, Summary: ledger.NewSummary()}
	for rec, err := range s.engine.Transactions(ctx, accountID, ledger.Filter{From: from, To: to}) {
		if err != nil {
			return Statement{}, err
		}
		st.Summary.Add(accountID, rec)
		st.Records = append(st.Records, rec)
	}
	balance, err := s.engine.Balance(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}
	st.Balance = balance
	return st, nil
}

// Limits returns the configured monetary policy.
func (s *Service) Limits() config.Limits {
	return s.engine.Limits()
}

func (s *Service) notify(ctx context.Context, accountID, kind, body string) {
	if s.notifier == nil {
		return
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		s.logger.Warn("notification skipped", slog.String("kind", kind), slog.Any("error", err))
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: account.Contact, Body: body}); err != nil {
		s.logger.Warn("notification delivery failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
