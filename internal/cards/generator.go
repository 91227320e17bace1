package cards

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	issuerPrefix = "4111"
	numberLength = 16
	validYears   = 3
)

var ten = big.NewInt(10)

type generator struct {
	digit func() (int, error)
}

func newGenerator() generator {
	return generator{digit: randomDigit}
}

func randomDigit() (int, error) {
	n, err := rand.Int(rand.Reader, ten)
	if err != nil {
		return 0, fmt.Errorf("draw digit: %w", err)
	}
	return int(n.Int64()), nil
}

// number returns a Luhn-valid card number under the issuer prefix.
func (g generator) number() (string, error) {
	var b strings.Builder
	b.WriteString(issuerPrefix)
	for b.Len() < numberLength-1 {
		d, err := g.digit()
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d))
	}
	partial := b.String()
	b.WriteByte(byte('0' + checkDigit(partial)))
	return b.String(), nil
}

func (g generator) cvv() (string, error) {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		d, err := g.digit()
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String(), nil
}

// expiry is MM/YY, validYears after now.
func expiry(now time.Time) string {
	return fmt.Sprintf("%02d/%02d", int(now.Month()), (now.Year()+validYears)%100)
}

// checkDigit computes the digit that makes partial+digit pass the Luhn check.
func checkDigit(partial string) int {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		n := int(partial[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return (10 - sum%10) % 10
}

// ValidNumber reports whether number is 12 to 19 digits and passes the
// Luhn check. Spaces are ignored.
func ValidNumber(number string) bool {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		r := digits[i]
		if r < '0' || r > '9' {
			return false
		}
		n := int(r - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
