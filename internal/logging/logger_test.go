package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "account_id", "a-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["msg"] != "kept" || entry["account_id"] != "a-1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewFallsBackToInfoAndText(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "loud", "text")

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected text output: %q", out)
	}
}
