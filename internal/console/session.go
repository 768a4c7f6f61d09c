package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"mmunblock/internal/config"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
)

const maxBodyReadBytes = 4 * 1024 * 1024

// Session is an HTTP client bound to one list's admin console. It carries the
// authentication cookie, spaces requests with a rate limiter, and decodes
// every page to UTF-8. A Session is not safe for concurrent use.
type Session struct {
	client    *http.Client
	base      *url.URL
	list      string
	userAgent string
	limiter   *rate.Limiter
	conv      form.Convention
	logger    *slog.Logger
}

// Option customizes the session.
type Option func(*Session)

// WithHTTPClient overrides the default HTTP client. A cookie jar is attached
// when the client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLimiter overrides the request rate limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(s *Session) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession builds an unauthenticated session for the configured list.
func NewSession(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("new session: nil config")
	}
	base, err := url.Parse(cfg.Console.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("new session: parse base url: %w", err)
	}
	s := &Session{
		client:    &http.Client{Timeout: cfg.RequestTimeoutDuration()},
		base:      base,
		list:      cfg.Console.ListName,
		userAgent: cfg.Console.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Console.RequestsPerSecond), cfg.Console.Burst),
		conv:      form.ConventionFrom(cfg.Conventions),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "console")
	if s.client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("new session: cookie jar: %w", err)
		}
		s.client.Jar = jar
	}
	return s, nil
}

// Convention returns the naming convention the session parses pages with.
func (s *Session) Convention() form.Convention {
	return s.conv
}

// AdminURL returns the member-management page of the list.
func (s *Session) AdminURL() string {
	return s.base.JoinPath("mailman", "admin", url.PathEscape(s.list), "members").String()
}

// DirectoryURL returns the directory page for one index key.
func (s *Session) DirectoryURL(key string) string {
	u := s.base.JoinPath("mailman", "admin", url.PathEscape(s.list), "members")
	u.RawQuery = url.Values{"letter": {key}}.Encode()
	return u.String()
}

// OptionsURL returns the per-member options page, which carries the bounce
// administration controls.
func (s *Session) OptionsURL(address string) string {
	return s.base.JoinPath("mailman", "options", url.PathEscape(s.list), url.PathEscape(address)).String()
}

// Response is a fully read, UTF-8 decoded page.
type Response struct {
	// URL is the final URL after redirects.
	URL    string
	Status int
	Body   []byte
	// Charset is the page encoding the body was decoded from. Payloads posted
	// back to this page are encoded in it.
	Charset string
}

// Get fetches target. A transport failure or non-2xx status is a FetchError.
// On a non-2xx status the decoded page is returned alongside the error so
// callers can still inspect what the console served.
func (s *Session) Get(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: target, Err: err}
	}
	return s.do(req)
}

// PostForm submits payload to target in order, encoded in the page charset.
// It is the only request that can change console state.
func (s *Session) PostForm(ctx context.Context, target string, payload form.Payload, pageCharset string) (*Response, error) {
	body := payload.EncodeCharset(pageCharset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return nil, &FetchError{Method: http.MethodPost, URL: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.logger.Debug("posting form",
		logging.String("url", target),
		logging.Int("fields", len(payload)),
		logging.String(logging.FieldEventType, "form_post"),
	)
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*Response, error) {
	target := req.URL.String()
	if err := s.limiter.Wait(req.Context()); err != nil {
		return nil, &FetchError{Method: req.Method, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Method: req.Method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadBytes))
	if err != nil {
		return nil, &FetchError{Method: req.Method, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	s.logger.Debug("request complete",
		logging.String("method", req.Method),
		logging.String("url", target),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(raw)),
		logging.Duration("elapsed", time.Since(started)),
	)
	body, name := decodeBody(raw, resp.Header.Get("Content-Type"))
	page := &Response{
		URL:     resp.Request.URL.String(),
		Status:  resp.StatusCode,
		Body:    body,
		Charset: name,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page, &FetchError{Method: req.Method, URL: target, Status: resp.StatusCode}
	}
	return page, nil
}

// decodeBody converts raw into UTF-8 using the declared or sniffed charset.
// Undecodable bodies are returned unchanged.
func decodeBody(raw []byte, contentType string) ([]byte, string) {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if strings.EqualFold(name, "utf-8") {
		return raw, name
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return raw, "utf-8"
	}
	return decoded, name
}
