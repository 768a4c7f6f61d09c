package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mmunblock/internal/config"
	"mmunblock/internal/services"
)

func clearConsoleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MAILMAN_BASE_URL", "MAILMAN_LIST_NAME", "MAILMAN_ADMIN_PW"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearConsoleEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MAILMAN_BASE_URL", "https://lists.example.org/")
	t.Setenv("MAILMAN_LIST_NAME", "announce")
	t.Setenv("MAILMAN_ADMIN_PW", "s3cret")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Console.BaseURL != "https://lists.example.org" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Console.BaseURL)
	}
	if cfg.Console.ListName != "announce" || cfg.Console.AdminPassword != "s3cret" {
		t.Fatalf("expected console settings from env, got %+v", cfg.Console)
	}
	if err := cfg.ValidateConsole(); err != nil {
		t.Fatalf("ValidateConsole returned error: %v", err)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "mmunblock")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LockPath() != filepath.Join(wantState, "announce.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
	if !cfg.Run.DryRun {
		t.Fatal("expected dry run by default")
	}
	keys, err := cfg.Keys()
	if err != nil {
		t.Fatalf("Keys returned error: %v", err)
	}
	if len(keys) != 27 || keys[0] != "1" || keys[26] != "z" {
		t.Fatalf("unexpected default keys %v", keys)
	}
}

func TestLoadFileOverridesEnv(t *testing.T) {
	clearConsoleEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MAILMAN_LIST_NAME", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "mmunblock.toml")
	cfg := config.Default()
	cfg.Console.BaseURL = "http://127.0.0.1:8080"
	cfg.Console.ListName = "from-file"
	cfg.Console.AdminPassword = "pw"
	cfg.Run.Letters = "b,q"
	cfg.Run.DryRun = false
	cfg.Fallback.MaxAttempts = 5
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if loaded.Console.ListName != "from-file" {
		t.Fatalf("expected file value to win, got %q", loaded.Console.ListName)
	}
	if loaded.Run.DryRun {
		t.Fatal("expected dry_run=false from file")
	}
	if loaded.Fallback.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", loaded.Fallback.MaxAttempts)
	}
	keys, err := loaded.Keys()
	if err != nil {
		t.Fatalf("Keys returned error: %v", err)
	}
	if strings.Join(keys, "") != "bq" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestValidateConsoleNamesMissingSettings(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateConsole()
	if err == nil {
		t.Fatal("expected error for missing console settings")
	}
	if !services.IsFatal(err) {
		t.Fatalf("missing settings must be fatal, got %v", err)
	}
	for _, want := range []string{"MAILMAN_BASE_URL", "MAILMAN_LIST_NAME", "MAILMAN_ADMIN_PW"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got %v", want, err)
		}
	}
}

func TestValidateConsoleRejectsBadScheme(t *testing.T) {
	cfg := config.Default()
	cfg.Console.BaseURL = "ftp://lists.example.org"
	cfg.Console.ListName = "announce"
	cfg.Console.AdminPassword = "pw"
	if err := cfg.ValidateConsole(); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"timeout", func(c *config.Config) { c.Console.RequestTimeout = 0 }, "console.request_timeout"},
		{"rate", func(c *config.Config) { c.Console.RequestsPerSecond = 0 }, "console.requests_per_second"},
		{"attempts", func(c *config.Config) { c.Fallback.MaxAttempts = 0 }, "fallback.max_attempts"},
		{"backoff", func(c *config.Config) { c.Fallback.BackoffMS = -1 }, "fallback.backoff_ms"},
		{"letters", func(c *config.Config) { c.Run.Letters = "a,#" }, "run.letters"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearConsoleEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Conventions.SubmitButton != "setmemberopts_btn" {
		t.Fatalf("unexpected submit button %q", cfg.Conventions.SubmitButton)
	}
	if len(cfg.Conventions.FormMarkers) != 2 {
		t.Fatalf("unexpected form markers %v", cfg.Conventions.FormMarkers)
	}
}

func TestEnsureDirectoriesCreatesDiagnosticsWhenEnabled(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Diagnostics.Enabled = true
	cfg.Diagnostics.Dir = filepath.Join(base, "diag")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Diagnostics.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
