package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	accountNumberLow  = 10_000_000
	accountNumberSpan = 90_000_000
)

// NumberGenerator produces externally visible account numbers: a two
// letter prefix followed by eight digits.
type NumberGenerator struct {
	prefix   string
	attempts int
	draw     func() (int64, error)
}

// NewNumberGenerator builds a generator that allows up to attempts tries per
// registration before giving up on collisions.
func NewNumberGenerator(prefix string, attempts int) *NumberGenerator {
	if attempts < 1 {
		attempts = 1
	}
	return &NumberGenerator{prefix: prefix, attempts: attempts, draw: drawDigits}
}

// Next returns a fresh candidate account number.
func (g *NumberGenerator) Next() (string, error) {
	n, err := g.draw()
	if err != nil {
		return "", fmt.Errorf("draw account number: %w", err)
	}
	return fmt.Sprintf("%s%08d", g.prefix, n), nil
}

func drawDigits() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accountNumberSpan))
	if err != nil {
		return 0, err
	}
	return accountNumberLow + n.Int64(), nil
}
