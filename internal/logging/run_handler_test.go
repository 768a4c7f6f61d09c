package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRunHandlerStampsRunID(t *testing.T) {
	var buf bytes.Buffer
	handler := newRunHandler(slog.NewJSONHandler(&buf, nil), "run-123", nil)

	slog.New(handler).With("extra", "value").Info("page fetched")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-123"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunHandlerMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	handler := newRunHandler(slog.NewJSONHandler(&buf, nil), "", []string{"s3cret", ""})
	logger := slog.New(handler).With("body", "adminpw=s3cret")

	logger.Warn("login with s3cret failed",
		slog.Any("error", errors.New("post adminpw=s3cret: refused")),
		slog.Group("form", slog.String("adminpw", "s3cret")),
		slog.Int("fields", 3),
	)

	output := buf.String()
	if strings.Contains(output, "s3cret") {
		t.Fatalf("secret leaked into log output: %s", output)
	}
	if got := strings.Count(output, redacted); got != 4 {
		t.Fatalf("expected 4 redactions, got %d in %s", got, output)
	}
	if !strings.Contains(output, `"fields":3`) {
		t.Fatalf("expected non-string attrs untouched, got %s", output)
	}
	if strings.Contains(output, "run_id") {
		t.Fatalf("expected no run_id without one configured, got %s", output)
	}
}

func TestComposeSubject(t *testing.T) {
	tests := []struct{ key, stage, want string }{
		{"b", "verify", "key b (verify)"},
		{"b", "", "key b"},
		{"", "auth", "auth"},
		{"", "", ""},
	}
	for _, tc := range tests {
		if got := composeSubject(tc.key, tc.stage); got != tc.want {
			t.Errorf("composeSubject(%q, %q) = %q, want %q", tc.key, tc.stage, got, tc.want)
		}
	}
}
