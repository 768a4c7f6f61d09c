package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Console contains the admin console address, credential, and HTTP tuning.
type Console struct {
	BaseURL           string  `toml:"base_url"`
	ListName          string  `toml:"list_name"`
	AdminPassword     string  `toml:"admin_password"`
	UserAgent         string  `toml:"user_agent"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Run contains the default selection of index keys and the dry-run switch.
type Run struct {
	// Letters is a comma-separated key selection such as "1,a-z" or "abc".
	Letters string `toml:"letters"`
	DryRun  bool   `toml:"dry_run"`
}

// Diagnostics controls the artifact recorder.
type Diagnostics struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Fallback bounds the bounce-clearing retry loop.
type Fallback struct {
	MaxAttempts int `toml:"max_attempts"`
	BackoffMS   int `toml:"backoff_ms"`
}

// Conventions names the form fields and markers the console uses. The defaults
// match the stock Mailman 2.1 admin skin.
type Conventions struct {
	BlockSuffix   string   `toml:"block_suffix"`
	BounceMarker  string   `toml:"bounce_marker"`
	PasswordField string   `toml:"password_field"`
	SubmitButton  string   `toml:"submit_button"`
	SubmitValue   string   `toml:"submit_value"`
	FormMarkers   []string `toml:"form_markers"`
	DisableField  string   `toml:"disable_field"`
	BounceNotice  string   `toml:"bounce_notice"`
	OptionsSubmit string   `toml:"options_submit"`
	OptionsValue  string   `toml:"options_value"`
}

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Preflight toggles optional environment checks.
type Preflight struct {
	DNSCheck   bool `toml:"dns_check"`
	DNSTimeout int  `toml:"dns_timeout"`
}

// Config encapsulates all configuration values for mmunblock.
//
// Configuration sections by subsystem:
//   - Console: admin console URL, list, credential, HTTP politeness
//   - Run: index key selection and dry-run default
//   - Diagnostics: redacted page/payload artifacts
//   - Fallback: bounce-clear retry bounds
//   - Conventions: field names and markers of the admin skin
//   - Paths: run lock and history database location
//   - Logging: log format and level
//   - Preflight: optional DNS resolution check
type Config struct {
	Console     Console     `toml:"console"`
	Run         Run         `toml:"run"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Fallback    Fallback    `toml:"fallback"`
	Conventions Conventions `toml:"conventions"`
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Preflight   Preflight   `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mmunblock/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mmunblock.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, when diagnostics are
// enabled, the artifact directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if c.Diagnostics.Enabled {
		dirs = append(dirs, c.Diagnostics.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Keys returns the ordered, de-duplicated index keys selected by run.letters.
func (c *Config) Keys() ([]string, error) {
	keys, err := ParseKeys(c.Run.Letters)
	if err != nil {
		return nil, fmt.Errorf("run.letters: %w", err)
	}
	return keys, nil
}

// LockPath returns the per-list run lock location.
func (c *Config) LockPath() string {
	name := strings.TrimSpace(c.Console.ListName)
	if name == "" {
		name = "mmunblock"
	}
	return filepath.Join(c.Paths.StateDir, name+".lock")
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
