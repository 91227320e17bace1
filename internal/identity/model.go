package identity

import (
	"strings"
	"time"
)

// Account represents a registered bank customer.
type Account struct {
	ID            string
	Username      string
	PasswordHash  []byte
	FullName      string
	Contact       string
	Email         string
	AccountNumber string
	CreatedAt     time.Time
}

// RegisterInput carries the sign-up form. ConfirmPassword is optional; when
// present it must equal Password.
type RegisterInput struct {
	FullName        string
	Username        string
	Password        string
	ConfirmPassword string
	Contact         string
	Email           string
}

func (in RegisterInput) normalized() RegisterInput {
	return RegisterInput{
		FullName:        strings.TrimSpace(in.FullName),
		Username:        strings.TrimSpace(in.Username),
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
		Contact:         strings.TrimSpace(in.Contact),
		Email:           strings.TrimSpace(in.Email),
	}
}
