package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName         = "UnitedUnionBank"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultSessionTTL      = 30 * time.Minute
	defaultOTPTTL          = 300 * time.Second
	defaultDepositMin      = "100"
	defaultDepositMax      = "1000000"
	defaultTransferMax     = "25000"
	defaultDailyLimit      = "50000"
	defaultAccountPrefix   = "UU"
	defaultAccountRetries  = 5
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	SessionSecret string
	SessionTTL    time.Duration
	OTPTTL        time.Duration

	Limits Limits

	AccountNumberPrefix  string
	AccountNumberRetries int

	// LoginAttemptsPerMinute caps login and OTP reissue calls per session or
	// client. Zero keeps attempts unlimited.
	LoginAttemptsPerMinute int
	NotifyWebhookURL       string
}

// Limits holds the monetary policy applied to ledger operations.
type Limits struct {
	DepositMin  decimal.Decimal
	DepositMax  decimal.Decimal
	TransferMax decimal.Decimal
	// DailyTransfer is advertised to clients but not enforced by the ledger.
	DailyTransfer decimal.Decimal
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		ShutdownPeriod:      defaultShutdownDelay,
		IdempotencyTTL:      defaultIdempotencyTTL,
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		AccountNumberPrefix: getEnv("ACCOUNT_NUMBER_PREFIX", defaultAccountPrefix),
		NotifyWebhookURL:    strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv("SESSION_TTL_SECONDS", "SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationFromEnv("OTP_TTL_SECONDS", "OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}

	if cfg.Limits.DepositMin, err = amountFromEnv("DEPOSIT_MIN", defaultDepositMin); err != nil {
		return Config{}, err
	}
	if cfg.Limits.DepositMax, err = amountFromEnv("DEPOSIT_MAX", defaultDepositMax); err != nil {
		return Config{}, err
	}
	if cfg.Limits.TransferMax, err = amountFromEnv("TRANSFER_MAX", defaultTransferMax); err != nil {
		return Config{}, err
	}
	if cfg.Limits.DailyTransfer, err = amountFromEnv("TRANSFER_DAILY_LIMIT", defaultDailyLimit); err != nil {
		return Config{}, err
	}
	if cfg.Limits.DepositMin.GreaterThan(cfg.Limits.DepositMax) {
		return Config{}, fmt.Errorf("DEPOSIT_MIN %s exceeds DEPOSIT_MAX %s", cfg.Limits.DepositMin, cfg.Limits.DepositMax)
	}

	if cfg.AccountNumberRetries, err = intFromEnv("ACCOUNT_NUMBER_RETRIES", defaultAccountRetries); err != nil {
		return Config{}, err
	}
	if cfg.LoginAttemptsPerMinute, err = intFromEnv("LOGIN_ATTEMPTS_PER_MINUTE", 0); err != nil {
		return Config{}, err
	}
	if len(cfg.AccountNumberPrefix) != 2 {
		return Config{}, fmt.Errorf("ACCOUNT_NUMBER_PREFIX must be two characters, got %q", cfg.AccountNumberPrefix)
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.SessionSecret == "" {
			return Config{}, fmt.Errorf("SESSION_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "development-only-session-secret"
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether in-memory backends and a default secret are acceptable.
func (c Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", secondsKey)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", durationKey)
		}
		return d, nil
	}
	return fallback, nil
}

func amountFromEnv(key, fallback string) (decimal.Decimal, error) {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}
