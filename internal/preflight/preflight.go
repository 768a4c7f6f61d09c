package preflight

import (
	"context"

	"mmunblock/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Option customizes RunAll.
type Option func(*settings)

type settings struct {
	dnsServers []string
}

// WithDNSServers overrides the resolvers from /etc/resolv.conf. Each entry is
// a host:port address.
func WithDNSServers(servers ...string) Option {
	return func(s *settings) { s.dnsServers = servers }
}

// RunAll executes all applicable preflight checks for the given config.
// Console checks are skipped when the console settings are incomplete.
func RunAll(ctx context.Context, cfg *config.Config, opts ...Option) []Result {
	if cfg == nil {
		return nil
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	var results []Result

	consoleOK := true
	if err := cfg.ValidateConsole(); err != nil {
		consoleOK = false
		results = append(results, Result{Name: "Console settings", Detail: err.Error()})
	} else {
		results = append(results, Result{Name: "Console settings", Passed: true,
			Detail: cfg.Console.BaseURL + " list " + cfg.Console.ListName})
	}

	if err := cfg.EnsureDirectories(); err != nil {
		results = append(results, Result{Name: "Directories", Detail: err.Error()})
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Diagnostics.Enabled {
		results = append(results, CheckDirectoryAccess("Diagnostics directory", cfg.Diagnostics.Dir))
	}

	if !consoleOK {
		return results
	}
	if cfg.Preflight.DNSCheck {
		if host, ok := resolvableHost(cfg.Console.BaseURL); ok {
			results = append(results, CheckDNS(ctx, host, s.dnsServers, cfg.DNSTimeoutDuration()))
		}
	}
	results = append(results, CheckConsole(ctx, cfg))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
