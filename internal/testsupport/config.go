package testsupport

import (
	"path/filepath"
	"testing"

	"mmunblock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Requests are not throttled and the fallback does not back off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Console.ListName = "announce"
	cfgVal.Console.AdminPassword = "letmein"
	cfgVal.Console.RequestTimeout = 5
	cfgVal.Console.RequestsPerSecond = 1000
	cfgVal.Console.Burst = 10
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Diagnostics.Dir = filepath.Join(base, "diagnostics")
	cfgVal.Fallback.BackoffMS = 1
	cfgVal.Preflight.DNSCheck = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithConsole points the config at a console base URL.
func WithConsole(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Console.BaseURL = baseURL
	}
}

// WithPassword overrides the admin credential.
func WithPassword(password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Console.AdminPassword = password
	}
}

// WithLetters overrides the index key selection.
func WithLetters(letters string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Letters = letters
	}
}

// WithLive disables dry-run mode.
func WithLive() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.DryRun = false
	}
}

// WithDiagnostics enables the artifact recorder.
func WithDiagnostics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Diagnostics.Enabled = true
	}
}

// WithMaxAttempts overrides the fallback attempt bound.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fallback.MaxAttempts = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
