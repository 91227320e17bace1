package cards

import (
	"errors"
	"time"
)

var (
	ErrNoActiveCard = errors.New("no active card")
	ErrInvalidCard  = errors.New("invalid card number")
)

// Status of a virtual card.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Card is a virtual debit card bound to an account.
type Card struct {
	ID        string
	AccountID string
	Number    string
	Expiry    string
	CVV       string
	Status    Status
	CreatedAt time.Time
}

// Masked shows only the last four digits.
func (c Card) Masked() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return "**** **** **** " + c.Number[len(c.Number)-4:]
}
