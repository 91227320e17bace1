package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidInput reports a missing field or a password confirmation mismatch.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUsername reports a username that is already registered.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned by lookups for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNumberTaken is returned by repositories when a generated
	// account number collides with an existing one.
	ErrAccountNumberTaken = errors.New("account number already assigned")
	// ErrAccountNumberExhausted means every generated account number collided.
	ErrAccountNumberExhausted = errors.New("could not allocate a unique account number")
)

// bcrypt ignores input beyond this length.
const maxPasswordBytes = 72

// Service manages the account lifecycle and credential checks.
type Service struct {
	repo    Repository
	numbers *NumberGenerator
	logger  *slog.Logger
	cost    int
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new identity service.
func NewService(repo Repository, numbers *NumberGenerator, logger *slog.Logger) *Service {
	if numbers == nil {
		numbers = NewNumberGenerator("UU", 5)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		numbers: numbers,
		logger:  logger,
		cost:    bcrypt.DefaultCost,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and its empty wallet. The password is stored
// only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	in := input.normalized()
	if in.FullName == "" || in.Username == "" || in.Password == "" || in.Contact == "" || in.Email == "" {
		return Account{}, fmt.Errorf("%w: full name, username, password, contact and email are required", ErrInvalidInput)
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return Account{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	if len(in.Password) > maxPasswordBytes {
		return Account{}, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidInput, maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Contact:      in.Contact,
		Email:        in.Email,
		CreatedAt:    s.now(),
	}

	for attempt := 1; attempt <= s.numbers.attempts; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return Account{}, err
		}
		account.AccountNumber = number

		err = s.repo.Create(ctx, account)
		switch {
		case err == nil:
			s.logger.Info("account registered",
				slog.String("account_id", account.ID),
				slog.String("username", account.Username),
				slog.String("account_number", account.AccountNumber),
			)
			return account, nil
		case errors.Is(err, ErrAccountNumberTaken):
			s.logger.Warn("account number collision", slog.String("account_number", number), slog.Int("attempt", attempt))
			continue
		default:
			return Account{}, err
		}
	}
	return Account{}, ErrAccountNumberExhausted
}

// VerifyCredentials checks a username/password pair against the stored hash.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// FindByID retrieves an account by identifier.
func (s *Service) FindByID(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByUsername retrieves an account by username.
func (s *Service) FindByUsername(ctx context.Context, username string) (Account, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.cost)
	})
	return s.dummyHash
}
