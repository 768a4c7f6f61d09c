package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mmunblock/internal/config"
	"mmunblock/internal/console"
	"mmunblock/internal/diagnostics"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
	"mmunblock/internal/services"
)

const (
	disabledValue = "1"
	enabledValue  = "0"
)

// Controller clears bounce disablement through the member options page.
type Controller struct {
	session     *console.Session
	conv        config.Conventions
	maxAttempts int
	backoff     time.Duration
	sleep       Sleeper
	recorder    *diagnostics.Recorder
	logger      *slog.Logger
}

// Option customizes the controller.
type Option func(*Controller)

// WithSleeper replaces the backoff wait.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithRecorder attaches a diagnostics recorder.
func WithRecorder(rec *diagnostics.Recorder) Option {
	return func(c *Controller) { c.recorder = rec }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New builds a controller bounded by the fallback section of cfg.
func New(session *console.Session, cfg *config.Config, opts ...Option) *Controller {
	c := &Controller{
		session:     session,
		conv:        cfg.Conventions,
		maxAttempts: max(cfg.Fallback.MaxAttempts, 1),
		backoff:     cfg.FallbackBackoff(),
		sleep:       SleepWithContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "fallback")
	return c
}

// Run drives one address to Verified or Exhausted. It never returns an
// error; failures are carried on the outcome.
//
// Once a clear has been accepted, later attempts only re-submit when the
// options page still shows delivery disabled. Otherwise they back off and
// re-verify against the directory, so a console that is slow to reflect the
// change still reaches Verified.
func (c *Controller) Run(ctx context.Context, key, address string) Outcome {
	out := Outcome{Key: key, Address: address, State: Idle}
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldAddress, address))

	for attempt := 1; attempt <= c.maxAttempts && !out.State.Terminal(); attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff); err != nil {
				out.Err = err
				out.Reason = "cancelled"
				break
			}
		}
		out.Attempts = attempt
		if out.State != BounceClearSubmitted {
			out.State = BounceCheck
		}
		c.attempt(ctx, logger, key, address, attempt, &out)
	}
	if out.State != Verified {
		out.State = Exhausted
		if out.Reason == "" {
			out.Reason = fmt.Sprintf("still blocked after %d attempt(s)", out.Attempts)
		}
		logging.WarnWithContext(logger, "bounce fallback exhausted", "fallback_exhausted",
			logging.Int("attempts", out.Attempts),
			logging.Bool("bounce_found", out.BounceFound),
			logging.String("reason", out.Reason),
			logging.String(logging.FieldErrorHint, "inspect the member options page and diagnostics artifacts"),
			logging.String(logging.FieldImpact, "member remains blocked"),
		)
		return out
	}
	logger.Info("member unblocked via fallback",
		logging.String(logging.FieldEventType, "fallback_verified"),
		logging.Int("attempts", out.Attempts),
	)
	return out
}

// attempt runs one check, clear, and verify cycle. It moves out to a terminal
// state when the address is verified or when no bounce disablement exists.
func (c *Controller) attempt(ctx context.Context, logger *slog.Logger, key, address string, attempt int, out *Outcome) {
	suffix := ""
	if attempt > 1 {
		suffix = fmt.Sprintf("-attempt%d", attempt)
	}

	view, err := c.session.Get(ctx, c.session.OptionsURL(address))
	if err != nil {
		out.Err = services.Wrap(services.ErrTransient, BounceCheck.String(), "fetch options page", address, err)
		logger.Debug("options page fetch failed", logging.Error(err), logging.Int("attempt", attempt))
		return
	}
	c.recorder.Record(diagnostics.StageBounceView+suffix, key, view.Body)

	model, err := form.Parse(view.Body, c.session.Convention())
	if err != nil {
		out.Err = err
		return
	}
	options, disabled := c.bounceForm(model)
	switch {
	case disabled:
		out.BounceFound = true
		if !c.clear(ctx, logger, key, address, suffix, attempt, view, options, out) {
			return
		}
	case out.State == BounceClearSubmitted:
		logger.Debug("bounce already cleared; re-verifying", logging.Int("attempt", attempt))
	default:
		out.Reason = "no bounce disablement found"
		out.State = Exhausted
		return
	}

	page := c.session.FetchDirectory(ctx, key)
	if page.Err != nil {
		out.Err = page.Err
		return
	}
	c.recorder.Record(diagnostics.StageBounceVerifyPage+suffix, key, page.HTML)
	dir, err := form.Extract(page.HTML, c.session.Convention())
	if err != nil {
		out.Err = err
		return
	}
	if state, listed := dir.States(c.session.Convention())[address]; listed && state == form.Clear {
		out.State = Verified
		out.Err = nil
	}
}

// clear submits the options form with delivery enabled and reports whether
// the console accepted the request.
func (c *Controller) clear(ctx context.Context, logger *slog.Logger, key, address, suffix string, attempt int, view *console.Response, options form.Form, out *Outcome) bool {
	payload := enableDelivery(options, c.conv.DisableField).Serialize(c.conv.OptionsSubmit, c.conv.OptionsValue)
	c.recorder.RecordPayload(diagnostics.StageBouncePayload+suffix, key, payload)
	action, err := console.ResolveAction(view.URL, options.Action)
	if err != nil {
		out.Err = err
		return false
	}
	resp, err := c.session.PostForm(ctx, action, payload, view.Charset)
	if err != nil {
		out.Err = services.Wrap(services.ErrTransient, BounceClearSubmitted.String(), "submit options form", address, err)
		logger.Debug("bounce clear submission failed", logging.Error(err), logging.Int("attempt", attempt))
		return false
	}
	out.State = BounceClearSubmitted
	c.recorder.Record(diagnostics.StageBounceResponse+suffix, key, resp.Body)
	logger.Debug("bounce clear submitted", logging.Int("attempt", attempt), logging.Int("status", resp.Status))
	return true
}

// bounceForm returns the options form when it shows delivery disabled and
// the page carries the bounce notice.
func (c *Controller) bounceForm(model *form.Model) (form.Form, bool) {
	if c.conv.BounceNotice != "" && !strings.Contains(strings.ToLower(model.Text), strings.ToLower(c.conv.BounceNotice)) {
		return form.Form{}, false
	}
	for _, f := range model.Forms {
		for _, field := range f.Fields {
			if field.Name == c.conv.DisableField && field.Value == disabledValue && field.Checked {
				return f, true
			}
		}
	}
	return form.Form{}, false
}

// enableDelivery selects the enabled value of the disable control and leaves
// every other field as served.
func enableDelivery(f form.Form, disableField string) form.Form {
	out := f.Clone()
	for i := range out.Fields {
		if out.Fields[i].Name != disableField {
			continue
		}
		out.Fields[i].Checked = out.Fields[i].Value == enabledValue
	}
	return out
}
