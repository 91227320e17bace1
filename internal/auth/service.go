package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/notification"
)

// Credentials checks a username and password pair.
type Credentials interface {
	VerifyCredentials(ctx context.Context, username, password string) (identity.Account, error)
}

// Limiter may refuse an attempt identified by key. Implementations return
// ErrRateLimited to reject.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLimiter installs a rate limiter consulted by Login and ReissueOTP.
func WithLimiter(l Limiter) Option {
	return func(m *Manager) { m.limiter = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCodeSource overrides OTP generation.
func WithCodeSource(codes func() (string, error)) Option {
	return func(m *Manager) { m.codes = codes }
}

// Manager drives sessions through ANONYMOUS, CREDENTIALS_VERIFIED and
// AUTHENTICATED.
type Manager struct {
	store    Store
	creds    Credentials
	notifier notification.Notifier
	limiter  Limiter
	logger   *slog.Logger
	otpTTL   time.Duration
	now      func() time.Time
	codes    func() (string, error)
}

func NewManager(store Store, creds Credentials, notifier notification.Notifier, otpTTL time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:    store,
		creds:    creds,
		notifier: notifier,
		logger:   logger,
		otpTTL:   otpTTL,
		now:      func() time.Time { return time.Now().UTC() },
		codes:    newCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OTPTTL is the validity window of a challenge.
func (m *Manager) OTPTTL() time.Duration {
	return m.otpTTL
}

// Open creates an anonymous session and returns its id.
func (m *Manager) Open(ctx context.Context) (string, error) {
	now := m.now()
	session := Session{
		ID:        uuid.NewString(),
		State:     StateAnonymous,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return "", err
	}
	return session.ID, nil
}

// Session returns a copy of the stored session.
func (m *Manager) Session(ctx context.Context, sessionID string) (Session, error) {
	return m.store.Get(ctx, sessionID)
}

// Login checks credentials and, on success, replaces whatever the session
// held with a fresh OTP challenge. A failed login leaves the session as it was.
func (m *Manager) Login(ctx context.Context, sessionID, username, password string) (Challenge, error) {
	if err := m.allow(ctx, "login:"+username); err != nil {
		return Challenge{}, err
	}
	if _, err := m.store.Get(ctx, sessionID); err != nil {
		return Challenge{}, err
	}

	account, err := m.creds.VerifyCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			m.logger.Info("login rejected", slog.String("session_id", sessionID))
		}
		return Challenge{}, err
	}

	challenge, err := m.challenge()
	if err != nil {
		return Challenge{}, err
	}
	err = m.store.Update(ctx, sessionID, func(s *Session) error {
		s.reset(challenge.IssuedAt)
		s.State = StateCredentialsVerified
		s.PendingAccountID = account.ID
		s.Contact = account.Contact
		s.Challenge = &challenge
		return nil
	})
	if err != nil {
		return Challenge{}, err
	}

	m.logger.Info("credentials verified",
		slog.String("session_id", sessionID),
		slog.String("account_id", account.ID),
	)
	m.deliver(ctx, account.Contact, challenge)
	return challenge, nil
}

// VerifyOTP consumes the pending challenge. An expired challenge sends the
// session back to ANONYMOUS; a wrong code leaves it pending. Replaying a
// consumed code is a mismatch.
func (m *Manager) VerifyOTP(ctx context.Context, sessionID, code string) (string, error) {
	var (
		outcome   error
		accountID string
	)
	err := m.store.Update(ctx, sessionID, func(s *Session) error {
		outcome, accountID = nil, ""
		if s.State == StateAuthenticated {
			// the challenge was consumed by an earlier verification
			return ErrOTPMismatch
		}
		if s.State != StateCredentialsVerified || s.Challenge == nil {
			return ErrInvalidState
		}
		now := m.now()
		if now.Sub(s.Challenge.IssuedAt) >= m.otpTTL {
			s.reset(now)
			outcome = ErrOTPExpired
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(s.Challenge.Code)) != 1 {
			return ErrOTPMismatch
		}
		accountID = s.PendingAccountID
		s.State = StateAuthenticated
		s.AccountID = accountID
		s.PendingAccountID = ""
		s.Challenge = nil
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return "", err
	}
	if outcome != nil {
		m.logger.Info("otp expired", slog.String("session_id", sessionID))
		return "", outcome
	}
	m.logger.Info("otp verified",
		slog.String("session_id", sessionID),
		slog.String("account_id", accountID),
	)
	return accountID, nil
}

// ReissueOTP replaces the pending challenge and restarts its clock.
func (m *Manager) ReissueOTP(ctx context.Context, sessionID string) (Challenge, error) {
	if err := m.allow(ctx, "reissue:"+sessionID); err != nil {
		return Challenge{}, err
	}
	challenge, err := m.challenge()
	if err != nil {
		return Challenge{}, err
	}
	var contact string
	err = m.store.Update(ctx, sessionID, func(s *Session) error {
		if s.State != StateCredentialsVerified {
			return ErrInvalidState
		}
		s.Challenge = &challenge
		s.UpdatedAt = challenge.IssuedAt
		contact = s.Contact
		return nil
	})
	if err != nil {
		return Challenge{}, err
	}
	m.logger.Info("otp reissued", slog.String("session_id", sessionID))
	m.deliver(ctx, contact, challenge)
	return challenge, nil
}

// Logout clears everything bound to the session. Unknown sessions are ignored.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	err := m.store.Update(ctx, sessionID, func(s *Session) error {
		s.reset(m.now())
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// Authenticated returns the account bound to an AUTHENTICATED session.
func (m *Manager) Authenticated(ctx context.Context, sessionID string) (string, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	if session.State != StateAuthenticated || session.AccountID == "" {
		return "", ErrUnauthenticated
	}
	return session.AccountID, nil
}

func (m *Manager) allow(ctx context.Context, key string) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Allow(ctx, key)
}

func (m *Manager) challenge() (Challenge, error) {
	code, err := m.codes()
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{Code: code, IssuedAt: m.now()}, nil
}

func (m *Manager) deliver(ctx context.Context, contact string, challenge Challenge) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindOTPChallenge,
		Destination: contact,
		Body:        "Your United Union Bank verification code is " + challenge.Code,
	})
	if err != nil {
		m.logger.Warn("otp delivery failed", slog.Any("error", err))
	}
}
