package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/auth"
	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/logging"
)

type staticCredentials struct{}

func (staticCredentials) VerifyCredentials(_ context.Context, username, password string) (identity.Account, error) {
	if username != "alice" || password != "pw1" {
		return identity.Account{}, identity.ErrInvalidCredentials
	}
	return identity.Account{ID: "acc-alice", Username: "alice"}, nil
}

func TestSessionAuth(t *testing.T) {
	manager := auth.NewManager(auth.NewMemoryStore(), staticCredentials{}, nil, 5*time.Minute, logging.Discard(),
		auth.WithCodeSource(func() (string, error) { return "042424", nil }))
	tokens := auth.NewTokens("secret", time.Hour)

	app := fiber.New()
	app.Get("/me", SessionAuth(manager, tokens), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(AccountIDKey).(string))
	})

	call := func(token string) (int, string) {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if status, _ := call(""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	ctx := context.Background()
	sid, err := manager.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	token, _, err := tokens.Issue(sid)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Login(ctx, sid, "alice", "pw1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if status, _ := call(token); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 while otp pending, got %d", status)
	}
	if _, err := manager.VerifyOTP(ctx, sid, "042424"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	status, body := call(token)
	if status != fiber.StatusOK || body != "acc-alice" {
		t.Fatalf("expected 200 acc-alice, got %d %q", status, body)
	}
}
