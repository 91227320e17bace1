package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreFlow(t *testing.T) {
	store, _ := newRedisStore(t, 30*time.Minute)
	h := newHarness(t, store)
	ctx := context.Background()
	sid := h.open(t)

	challenge, err := h.manager.Login(ctx, sid, "alice", "pw-alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := h.manager.VerifyOTP(ctx, sid, "000000"); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	accountID, err := h.manager.VerifyOTP(ctx, sid, challenge.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if accountID != "acc-alice" {
		t.Fatalf("unexpected account %s", accountID)
	}
	if _, err := h.manager.VerifyOTP(ctx, sid, challenge.Code); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected replay to fail with mismatch, got %v", err)
	}
	if got, err := h.manager.Authenticated(ctx, sid); err != nil || got != "acc-alice" {
		t.Fatalf("authenticated: %q %v", got, err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	h := newHarness(t, store)
	ctx := context.Background()
	sid := h.open(t)

	mr.FastForward(2 * time.Minute)
	if _, err := h.manager.Login(ctx, sid, "alice", "pw-alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if _, err := h.manager.Authenticated(ctx, sid); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRedisStoreUpdateKeepsChallengeOnCallbackError(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Create(ctx, Session{ID: "s1", State: StateCredentialsVerified, Challenge: &Challenge{Code: "123456", IssuedAt: now}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := store.Update(ctx, "s1", func(s *Session) error {
		s.Challenge = nil
		return ErrOTPMismatch
	})
	if !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Challenge == nil || got.Challenge.Code != "123456" || !got.Challenge.IssuedAt.Equal(now) {
		t.Fatalf("expected untouched challenge, got %+v", got.Challenge)
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	err := store.Update(context.Background(), "nope", func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}
