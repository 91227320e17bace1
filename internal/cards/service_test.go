package cards

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/unitedunion/uubank/internal/logging"
)

func TestIssueProducesValidCard(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	svc.now = func() time.Time { return time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC) }

	card, err := svc.Issue(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !regexp.MustCompile(`^4111[0-9]{12}$`).MatchString(card.Number) {
		t.Fatalf("unexpected number %q", card.Number)
	}
	if !ValidNumber(card.Number) {
		t.Fatalf("number %s fails luhn", card.Number)
	}
	if card.Expiry != "07/27" {
		t.Fatalf("expected expiry 07/27, got %s", card.Expiry)
	}
	if !regexp.MustCompile(`^[0-9]{3}$`).MatchString(card.CVV) {
		t.Fatalf("unexpected cvv %q", card.CVV)
	}
	if card.Masked() != "**** **** **** "+card.Number[12:] {
		t.Fatalf("unexpected mask %s", card.Masked())
	}
}

func TestIssueReplacesActiveCard(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	if _, err := svc.Active(ctx, "acc-1"); !errors.Is(err, ErrNoActiveCard) {
		t.Fatalf("expected no active card, got %v", err)
	}
	first, err := svc.Issue(ctx, "acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := svc.Issue(ctx, "acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	active, err := svc.Active(ctx, "acc-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != second.ID || active.ID == first.ID {
		t.Fatalf("expected the newest card to be active, got %s", active.ID)
	}
	if _, err := svc.Active(ctx, "acc-2"); !errors.Is(err, ErrNoActiveCard) {
		t.Fatalf("cards leaked across accounts: %v", err)
	}
}

func TestCheckDigitAgainstKnownNumbers(t *testing.T) {
	if d := checkDigit("411111111111111"); d != 1 {
		t.Fatalf("expected check digit 1, got %d", d)
	}
	for _, n := range []string{"4111111111111111", "4012 8888 8888 1881", "5555555555554444"} {
		if !ValidNumber(n) {
			t.Fatalf("expected %s to be valid", n)
		}
	}
	for _, n := range []string{"4111111111111112", "4111", "4111-1111-1111-1111"} {
		if ValidNumber(n) {
			t.Fatalf("expected %s to be invalid", n)
		}
	}
}

func TestGeneratorFixedDigits(t *testing.T) {
	g := generator{digit: func() (int, error) { return 0, nil }}
	n, err := g.number()
	if err != nil {
		t.Fatalf("number: %v", err)
	}
	if n[:15] != "411100000000000" || !ValidNumber(n) {
		t.Fatalf("unexpected number %s", n)
	}
}
