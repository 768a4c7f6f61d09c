package diagnostics

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"mmunblock/internal/config"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
)

// Redacted replaces secret values in artifacts.
const Redacted = "[REDACTED]"

// Stage names used by the pipeline.
const (
	StagePreSubmitPage      = "pre-submit-page"
	StagePayload            = "payload"
	StagePostSubmitResponse = "post-submit-response"
	StagePostSubmitPage     = "post-submit-page"
	StageBounceView         = "bounce-view"
	StageBouncePayload      = "bounce-payload"
	StageBounceResponse     = "bounce-response"
	StageBounceVerifyPage   = "bounce-verify-page"
)

var (
	encodedPairPattern = regexp.MustCompile(`(^|[?&;\s"'>])([A-Za-z0-9_.-]+)=[^&\s"'<]*`)
	inputTagPattern    = regexp.MustCompile(`(?is)<input\b[^>]*>`)
	inputNamePattern   = regexp.MustCompile(`(?i)\sname\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	inputValuePattern  = regexp.MustCompile(`(?i)(\svalue\s*=\s*)("[^"]*"|'[^']*'|[^\s>]+)`)
)

// SensitiveFields are form fields whose values are always redacted.
var SensitiveFields = []string{"adminpw", "password", "pw", "pwconfirm"}

// WriteError reports an artifact that could not be written. It is only ever
// logged.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write diagnostic %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Recorder writes artifacts for one run. A nil or disabled Recorder is a
// no-op. It is safe for concurrent use.
type Recorder struct {
	dir       string
	secrets   []string
	sensitive map[string]struct{}
	logger    *slog.Logger

	mu  sync.Mutex
	seq int
}

// New returns a recorder for runID when diagnostics are enabled in cfg, and a
// disabled recorder otherwise.
func New(cfg *config.Config, runID string, logger *slog.Logger) *Recorder {
	if cfg == nil || !cfg.Diagnostics.Enabled || strings.TrimSpace(cfg.Diagnostics.Dir) == "" {
		return nil
	}
	r := &Recorder{
		dir:       filepath.Join(cfg.Diagnostics.Dir, runID),
		sensitive: make(map[string]struct{}, len(SensitiveFields)+1),
		logger:    logging.NewComponentLogger(logger, "diagnostics"),
	}
	for _, name := range SensitiveFields {
		r.sensitive[name] = struct{}{}
	}
	if name := cfg.Conventions.PasswordField; name != "" {
		r.sensitive[name] = struct{}{}
	}
	if secret := cfg.Console.AdminPassword; secret != "" {
		r.secrets = secretForms(secret)
	}
	return r
}

// secretForms lists the renderings of a secret that may appear in a page or
// request body, longest first so replacements do not overlap.
func secretForms(secret string) []string {
	forms := []string{secret}
	for _, escaped := range []string{url.QueryEscape(secret), url.PathEscape(secret)} {
		if !slices.Contains(forms, escaped) {
			forms = append(forms, escaped)
		}
	}
	slices.SortStableFunc(forms, func(a, b string) int { return len(b) - len(a) })
	return forms
}

// Enabled reports whether artifacts are written.
func (r *Recorder) Enabled() bool {
	return r != nil
}

// Dir returns the run artifact directory, or "" when disabled.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Record writes a page or response body.
func (r *Recorder) Record(stage, key string, content []byte) {
	if r == nil {
		return
	}
	r.write(stage, key, "html", r.redact(string(content)))
}

// RecordPayload writes an ordered payload, one name=value pair per line, with
// sensitive field values replaced.
func (r *Recorder) RecordPayload(stage, key string, payload form.Payload) {
	if r == nil {
		return
	}
	var b strings.Builder
	for _, pair := range payload {
		value := pair.Value
		if r.isSensitive(pair.Name) {
			value = Redacted
		}
		b.WriteString(pair.Name)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	b.WriteString("\n# encoded\n")
	b.WriteString(r.redactPayload(payload).Encode())
	b.WriteByte('\n')
	r.write(stage, key, "txt", r.redact(b.String()))
}

func (r *Recorder) redactPayload(payload form.Payload) form.Payload {
	out := make(form.Payload, len(payload))
	for i, pair := range payload {
		if r.isSensitive(pair.Name) {
			pair.Value = Redacted
		}
		out[i] = pair
	}
	return out
}

// redact removes every rendering of the credential from text, then masks the
// values of sensitive fields wherever a page echoes them back, both as
// encoded name=value pairs and as input elements.
func (r *Recorder) redact(text string) string {
	for _, secret := range r.secrets {
		text = strings.ReplaceAll(text, secret, Redacted)
	}
	text = encodedPairPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := encodedPairPattern.FindStringSubmatch(match)
		if !r.isSensitive(m[2]) {
			return match
		}
		return m[1] + m[2] + "=" + Redacted
	})
	return inputTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		name := inputNamePattern.FindStringSubmatch(tag)
		if name == nil || !r.isSensitive(strings.Trim(name[1], `"'`)) {
			return tag
		}
		return inputValuePattern.ReplaceAllString(tag, `${1}"`+Redacted+`"`)
	})
}

func (r *Recorder) isSensitive(name string) bool {
	_, ok := r.sensitive[strings.ToLower(name)]
	return ok
}

func (r *Recorder) write(stage, key, ext, content string) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	name := fmt.Sprintf("%03d-%s-%s.%s", seq, sanitize(key, "all"), sanitize(stage, "artifact"), ext)
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		r.warn(&WriteError{Path: path, Err: err})
		return
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.warn(&WriteError{Path: path, Err: err})
		return
	}
	r.logger.Debug("diagnostic written",
		logging.String("path", path),
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldIndexKey, key),
	)
}

func (r *Recorder) warn(err *WriteError) {
	logging.WarnWithContext(r.logger, "diagnostic write failed", "diagnostics_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check diagnostics.dir permissions and free space"),
		logging.String(logging.FieldImpact, "artifact skipped; the run continues"),
	)
}

func sanitize(part, fallback string) string {
	part = strings.TrimSpace(part)
	if part == "" {
		return fallback
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, part)
}
