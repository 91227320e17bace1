package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAuditLogsRequestIDAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/missing", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) != "req-123" {
		t.Fatalf("expected request id echoed, got %q", resp.Header.Get(requestIDHeader))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-123" || entry["status"] != float64(404) || entry["level"] != "WARN" {
		t.Fatalf("unexpected audit entry: %v", entry)
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if len(resp.Header.Get(requestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", resp.Header.Get(requestIDHeader))
	}
}
