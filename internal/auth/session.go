package auth

import (
	"errors"
	"time"
)

// State is the position of a session in the login state machine.
type State string

const (
	StateAnonymous           State = "ANONYMOUS"
	StateCredentialsVerified State = "CREDENTIALS_VERIFIED"
	StateAuthenticated       State = "AUTHENTICATED"
)

var (
	ErrOTPExpired      = errors.New("otp expired")
	ErrOTPMismatch     = errors.New("otp mismatch")
	ErrInvalidState    = errors.New("operation not valid in current session state")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthenticated = errors.New("session not authenticated")
	ErrRateLimited     = errors.New("too many attempts, try again later")
)

// Challenge is a pending one-time passcode.
type Challenge struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiresAt returns the instant the challenge stops being accepted.
func (c Challenge) ExpiresAt(ttl time.Duration) time.Time {
	return c.IssuedAt.Add(ttl)
}

// Session carries everything bound to one client's login attempt.
// PendingAccountID is set while an OTP is outstanding; AccountID only once
// the OTP has been verified.
type Session struct {
	ID               string     `json:"id"`
	State            State      `json:"state"`
	AccountID        string     `json:"account_id,omitempty"`
	PendingAccountID string     `json:"pending_account_id,omitempty"`
	Contact          string     `json:"contact,omitempty"`
	Challenge        *Challenge `json:"challenge,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (s *Session) reset(at time.Time) {
	s.State = StateAnonymous
	s.AccountID = ""
	s.PendingAccountID = ""
	s.Contact = ""
	s.Challenge = nil
	s.UpdatedAt = at
}
