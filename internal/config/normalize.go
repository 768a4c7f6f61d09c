package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeConsole()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConventions()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeConsole() {
	if strings.TrimSpace(c.Console.BaseURL) == "" {
		if value, ok := os.LookupEnv("MAILMAN_BASE_URL"); ok {
			c.Console.BaseURL = value
		}
	}
	if strings.TrimSpace(c.Console.ListName) == "" {
		if value, ok := os.LookupEnv("MAILMAN_LIST_NAME"); ok {
			c.Console.ListName = value
		}
	}
	if c.Console.AdminPassword == "" {
		if value, ok := os.LookupEnv("MAILMAN_ADMIN_PW"); ok {
			c.Console.AdminPassword = value
		}
	}
	c.Console.BaseURL = strings.TrimRight(strings.TrimSpace(c.Console.BaseURL), "/")
	c.Console.ListName = strings.TrimSpace(c.Console.ListName)
	c.Console.UserAgent = strings.TrimSpace(c.Console.UserAgent)
	if c.Console.UserAgent == "" {
		c.Console.UserAgent = defaultUserAgent
	}
	if c.Console.Burst <= 0 {
		c.Console.Burst = defaultBurst
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Diagnostics.Dir) == "" {
		c.Diagnostics.Dir = defaultDiagnosticsDir
	}
	if c.Diagnostics.Dir, err = expandPath(c.Diagnostics.Dir); err != nil {
		return fmt.Errorf("diagnostics.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConventions() {
	conv := &c.Conventions
	trimOr := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	trimOr(&conv.BlockSuffix, defaultBlockSuffix)
	trimOr(&conv.PasswordField, defaultPasswordField)
	trimOr(&conv.SubmitButton, defaultSubmitButton)
	trimOr(&conv.SubmitValue, defaultSubmitValue)
	trimOr(&conv.DisableField, defaultDisableField)
	trimOr(&conv.OptionsSubmit, defaultOptionsSubmit)
	trimOr(&conv.OptionsValue, defaultOptionsValue)
	conv.BounceMarker = strings.TrimSpace(conv.BounceMarker)
	conv.BounceNotice = strings.TrimSpace(conv.BounceNotice)

	markers := conv.FormMarkers[:0]
	for _, marker := range conv.FormMarkers {
		if marker = strings.TrimSpace(marker); marker != "" {
			markers = append(markers, marker)
		}
	}
	conv.FormMarkers = markers
	if len(conv.FormMarkers) == 0 {
		conv.FormMarkers = append([]string(nil), defaultFormMarkers...)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
