package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"mmunblock/internal/services"
)

// Validate ensures the configuration is usable. Console credentials are
// checked separately by ValidateConsole so that local commands such as
// history work without them.
func (c *Config) Validate() error {
	if err := c.validateConsoleTuning(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Preflight.DNSTimeout <= 0 {
		return errors.New("preflight.dns_timeout must be positive")
	}
	return nil
}

// ValidateConsole reports missing or malformed console settings, naming every
// missing value so a single run surfaces all of them.
func (c *Config) ValidateConsole() error {
	var missing []string
	if c.Console.BaseURL == "" {
		missing = append(missing, "console.base_url (MAILMAN_BASE_URL)")
	}
	if c.Console.ListName == "" {
		missing = append(missing, "console.list_name (MAILMAN_LIST_NAME)")
	}
	if c.Console.AdminPassword == "" {
		missing = append(missing, "console.admin_password (MAILMAN_ADMIN_PW)")
	}
	if len(missing) > 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mmunblock/config.toml"
		}
		return fmt.Errorf("%w: missing required settings: %s. Export the env vars or edit %s (create with 'mmunblock config init')",
			services.ErrConfiguration, strings.Join(missing, ", "), defaultPath)
	}

	parsed, err := url.Parse(c.Console.BaseURL)
	if err != nil {
		return fmt.Errorf("console.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("console.base_url must use http or https, got %q", c.Console.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("console.base_url must include a host, got %q", c.Console.BaseURL)
	}
	if strings.ContainsAny(c.Console.ListName, "/?#") {
		return fmt.Errorf("console.list_name contains invalid characters: %q", c.Console.ListName)
	}
	return nil
}

func (c *Config) validateConsoleTuning() error {
	if c.Console.RequestTimeout <= 0 {
		return errors.New("console.request_timeout must be positive")
	}
	if c.Console.RequestsPerSecond <= 0 {
		return errors.New("console.requests_per_second must be positive")
	}
	return nil
}

func (c *Config) validateRun() error {
	if _, err := c.Keys(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFallback() error {
	if c.Fallback.MaxAttempts < 1 {
		return errors.New("fallback.max_attempts must be at least 1")
	}
	if c.Fallback.BackoffMS < 0 {
		return errors.New("fallback.backoff_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
