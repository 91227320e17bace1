package payments

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/unitedunion/uubank/internal/config"
	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/ledger"
	"github.com/unitedunion/uubank/internal/logging"
	"github.com/unitedunion/uubank/internal/notification"
)

type testNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *testNotifier) last() notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return notification.Message{}
	}
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	svc      *Service
	notifier *testNotifier
	alice    identity.Account
	bob      identity.Account
}

type walletStore interface {
	ledger.Store
	identity.WalletOpener
}

// depositingStore commits a deposit every time records are read, standing in
// for a writer that races the reader.
type depositingStore struct {
	*ledger.InMemory
	accountID string
}

func (s *depositingStore) Records(ctx context.Context, accountID string, filter ledger.Filter) iter.Seq2[ledger.Record, error] {
	if _, err := s.InMemory.Deposit(ctx, s.accountID, decimal.NewFromInt(100), "concurrent", time.Now().UTC()); err != nil {
		return func(yield func(ledger.Record, error) bool) { yield(ledger.Record{}, err) }
	}
	return s.InMemory.Records(ctx, accountID, filter)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, ledger.NewInMemory())
}

func newFixtureWithStore(t *testing.T, store walletStore) *fixture {
	t.Helper()
	accounts := identity.NewMemoryRepository(store)
	limits := config.Limits{
		DepositMin:    decimal.NewFromInt(100),
		DepositMax:    decimal.NewFromInt(1_000_000),
		TransferMax:   decimal.NewFromInt(25_000),
		DailyTransfer: decimal.NewFromInt(50_000),
	}
	engine := ledger.NewEngine(store, accounts, limits, logging.Discard())
	notifier := &testNotifier{}

	f := &fixture{
		svc:      NewService(engine, accounts, notifier, logging.Discard()),
		notifier: notifier,
		alice:    identity.Account{ID: uuid.NewString(), Username: "alice", Contact: "+15550000001", AccountNumber: "UU10000001", CreatedAt: time.Now()},
		bob:      identity.Account{ID: uuid.NewString(), Username: "bob", Contact: "+15550000002", AccountNumber: "UU10000002", CreatedAt: time.Now()},
	}
	for _, acc := range []identity.Account{f.alice, f.bob} {
		if err := accounts.Create(context.Background(), acc); err != nil {
			t.Fatalf("create %s: %v", acc.Username, err)
		}
	}
	return f
}

func TestDepositNotifiesDepositor(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Deposit(context.Background(), f.alice.ID, decimal.NewFromInt(1000), "")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.Balance.StringFixed(2) != "1000.00" {
		t.Fatalf("unexpected balance %s", res.Balance)
	}
	msg := f.notifier.last()
	if msg.Kind != notification.KindDepositCompleted || msg.Destination != f.alice.Contact {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestTransferNotifiesRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Deposit(ctx, f.alice.ID, decimal.NewFromInt(1000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	res, err := f.svc.Transfer(ctx, f.alice.ID, "bob", decimal.NewFromInt(300), "")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.SenderBalance.StringFixed(2) != "700.00" || res.RecipientBalance.StringFixed(2) != "300.00" {
		t.Fatalf("unexpected balances %s / %s", res.SenderBalance, res.RecipientBalance)
	}
	msg := f.notifier.last()
	if msg.Kind != notification.KindTransferReceived || msg.Destination != f.bob.Contact || msg.Body != "You received 300.00 from alice" {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestNotificationFailureDoesNotFailTransfer(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("gateway down")
	ctx := context.Background()
	if _, err := f.svc.Deposit(ctx, f.alice.ID, decimal.NewFromInt(1000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Transfer(ctx, f.alice.ID, "bob", decimal.NewFromInt(10), ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}
}

func TestFailedTransferSendsNothing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Transfer(context.Background(), f.alice.ID, "bob", decimal.NewFromInt(10), ""); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(f.notifier.sent))
	}
}

func TestStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Deposit(ctx, f.alice.ID, decimal.NewFromInt(1000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Transfer(ctx, f.alice.ID, "bob", decimal.NewFromInt(250), ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	st, err := f.svc.Statement(ctx, f.alice.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.Records) != 2 || st.Records[0].Kind != ledger.KindTransfer {
		t.Fatalf("unexpected records %+v", st.Records)
	}
	if st.Balance.StringFixed(2) != "750.00" || !st.Summary.Net().Equal(st.Balance) {
		t.Fatalf("unexpected statement balance %s net %s", st.Balance, st.Summary.Net())
	}

	empty, err := f.svc.Statement(ctx, f.alice.ID, time.Now().Add(time.Hour), time.Time{})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(empty.Records) != 0 || empty.Summary.Count != 0 {
		t.Fatalf("expected empty statement, got %+v", empty)
	}
}

func TestStatementTotalsMatchRecords(t *testing.T) {
	store := &depositingStore{InMemory: ledger.NewInMemory()}
	f := newFixtureWithStore(t, store)
	store.accountID = f.alice.ID
	ctx := context.Background()

	if _, err := f.svc.Deposit(ctx, f.alice.ID, decimal.NewFromInt(1000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	st, err := f.svc.Statement(ctx, f.alice.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if st.Summary.Count != len(st.Records) {
		t.Fatalf("count %d disagrees with %d records", st.Summary.Count, len(st.Records))
	}
	total := decimal.Zero
	for _, rec := range st.Records {
		total = total.Add(rec.Amount)
	}
	if !st.Summary.Deposits.Equal(total) {
		t.Fatalf("deposits %s disagree with records %s", st.Summary.Deposits, total)
	}
	if !st.Summary.Net().Equal(st.Balance) {
		t.Fatalf("net %s disagrees with balance %s", st.Summary.Net(), st.Balance)
	}
}
