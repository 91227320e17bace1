package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var otpSpace = big.NewInt(1_000_000)

// newCode draws a six digit code uniformly from 000000..999999.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
