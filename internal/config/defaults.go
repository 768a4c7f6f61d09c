package config

import "time"

const (
	defaultUserAgent         = "mmunblock/1.1"
	defaultRequestTimeout    = 25
	defaultRequestsPerSecond = 2.0
	defaultBurst             = 1
	defaultLetters           = "1,a-z"
	defaultDiagnosticsDir    = "~/.local/share/mmunblock/diagnostics"
	defaultStateDir          = "~/.local/share/mmunblock"
	defaultMaxAttempts       = 3
	defaultBackoffMS         = 2000
	defaultBlockSuffix       = "_nomail"
	defaultBounceMarker      = "[bounce]"
	defaultPasswordField     = "adminpw"
	defaultSubmitButton      = "setmemberopts_btn"
	defaultSubmitValue       = "Submit Your Changes"
	defaultDisableField      = "disablemail"
	defaultBounceNotice      = "excessive bounces"
	defaultOptionsSubmit     = "options-submit"
	defaultOptionsValue      = "Submit My Changes"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultDNSTimeout        = 5
)

var defaultFormMarkers = []string{"setmemberopts_btn", "findmember"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Console: Console{
			UserAgent:         defaultUserAgent,
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
		},
		Run: Run{
			Letters: defaultLetters,
			DryRun:  true,
		},
		Diagnostics: Diagnostics{
			Dir: defaultDiagnosticsDir,
		},
		Fallback: Fallback{
			MaxAttempts: defaultMaxAttempts,
			BackoffMS:   defaultBackoffMS,
		},
		Conventions: Conventions{
			BlockSuffix:   defaultBlockSuffix,
			BounceMarker:  defaultBounceMarker,
			PasswordField: defaultPasswordField,
			SubmitButton:  defaultSubmitButton,
			SubmitValue:   defaultSubmitValue,
			FormMarkers:   append([]string(nil), defaultFormMarkers...),
			DisableField:  defaultDisableField,
			BounceNotice:  defaultBounceNotice,
			OptionsSubmit: defaultOptionsSubmit,
			OptionsValue:  defaultOptionsValue,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			DNSCheck:   true,
			DNSTimeout: defaultDNSTimeout,
		},
	}
}

// RequestTimeoutDuration returns console.request_timeout as a duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Console.RequestTimeout) * time.Second
}

// FallbackBackoff returns fallback.backoff_ms as a duration.
func (c *Config) FallbackBackoff() time.Duration {
	return time.Duration(c.Fallback.BackoffMS) * time.Millisecond
}

// DNSTimeoutDuration returns preflight.dns_timeout as a duration.
func (c *Config) DNSTimeoutDuration() time.Duration {
	return time.Duration(c.Preflight.DNSTimeout) * time.Second
}
