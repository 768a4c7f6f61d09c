package unblock

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mmunblock/internal/config"
	"mmunblock/internal/console"
	"mmunblock/internal/diagnostics"
	"mmunblock/internal/fallback"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
	"mmunblock/internal/services"
)

// Runner drives the pipeline for one run.
type Runner struct {
	session   *console.Session
	submitter *Submitter
	fallback  *fallback.Controller
	recorder  *diagnostics.Recorder
	dryRun    bool
	runID     string
	logger    *slog.Logger
}

// RunnerOption customizes the runner.
type RunnerOption func(*runnerSettings)

type runnerSettings struct {
	recorder  *diagnostics.Recorder
	logger    *slog.Logger
	runID     string
	fallbacks []fallback.Option
}

// WithRecorder attaches a diagnostics recorder to every stage.
func WithRecorder(rec *diagnostics.Recorder) RunnerOption {
	return func(s *runnerSettings) { s.recorder = rec }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(s *runnerSettings) { s.logger = logger }
}

// WithRunID stamps the report and log lines with a run identifier.
func WithRunID(id string) RunnerOption {
	return func(s *runnerSettings) { s.runID = id }
}

// WithFallbackOptions passes options through to the bounce fallback.
func WithFallbackOptions(opts ...fallback.Option) RunnerOption {
	return func(s *runnerSettings) { s.fallbacks = append(s.fallbacks, opts...) }
}

// NewRunner wires a runner on an authenticated session.
func NewRunner(session *console.Session, cfg *config.Config, opts ...RunnerOption) *Runner {
	var settings runnerSettings
	for _, opt := range opts {
		opt(&settings)
	}
	fbOpts := append([]fallback.Option{
		fallback.WithRecorder(settings.recorder),
		fallback.WithLogger(settings.logger),
	}, settings.fallbacks...)

	return &Runner{
		session:   session,
		submitter: NewSubmitter(session, settings.recorder, settings.logger),
		fallback:  fallback.New(session, cfg, fbOpts...),
		recorder:  settings.recorder,
		dryRun:    cfg.Run.DryRun,
		runID:     settings.runID,
		logger:    logging.NewComponentLogger(settings.logger, "runner"),
	}
}

// Run processes keys in order and returns the report. Cancelling ctx stops
// the crawl before the next key; a submission already under way completes
// with its verification and fallback.
func (r *Runner) Run(ctx context.Context, keys []string) *Report {
	report := &Report{RunID: r.runID, DryRun: r.dryRun, StartedAt: time.Now()}
	ctx = services.WithRunID(ctx, r.runID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Strings("keys", keys),
		logging.Bool("dry_run", r.dryRun),
	)

	for page := range r.session.Pages(ctx, keys) {
		r.processPage(services.WithIndexKey(ctx, page.Key), page, report)
	}
	if ctx.Err() != nil && len(report.Keys)+len(report.Skipped) < len(keys) {
		report.Interrupted = true
		logging.WarnWithContext(logger, "run interrupted", "run_interrupted",
			logging.Int("keys_done", len(report.Keys)),
			logging.Int("keys_total", len(keys)),
			logging.String(logging.FieldErrorHint, "rerun with --letters to cover the remaining keys"),
			logging.String(logging.FieldImpact, "remaining keys were not processed"),
		)
	}
	report.FinishedAt = time.Now()
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("total", report.Total()),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

func (r *Runner) processPage(ctx context.Context, page console.DirectoryPage, report *Report) {
	logger := logging.WithContext(ctx, r.logger)
	if page.Err != nil {
		report.Skipped = append(report.Skipped, Skip{Key: page.Key, Err: page.Err})
		return
	}
	r.recorder.Record(diagnostics.StagePreSubmitPage, page.Key, page.HTML)

	model, err := form.Extract(page.HTML, r.session.Convention())
	if err != nil && blankPage(page.HTML, r.session.Convention()) {
		logger.Debug("no members form on an empty directory page")
		report.Keys = append(report.Keys, page.Key)
		return
	}
	if err != nil {
		logging.WarnWithContext(logger, "no members form on directory page", "members_form_missing",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the conventions section against the console's page"),
			logging.String(logging.FieldImpact, "key skipped"),
		)
		report.Skipped = append(report.Skipped, Skip{Key: page.Key, Err: err})
		return
	}
	report.Keys = append(report.Keys, page.Key)

	plan, addresses := form.Plan(model, r.session.Convention())
	if plan.Empty() {
		logger.Debug("no blocked members", logging.Int("members", len(model.Members())))
		return
	}
	logger.Info("blocked members found",
		logging.String(logging.FieldEventType, "blocked_found"),
		logging.Strings("addresses", addresses),
	)

	// A started mutation is always verified, even when the run is cancelled.
	work := context.WithoutCancel(ctx)
	result, err := r.submitter.Submit(work, page, model, plan, r.dryRun)
	if err != nil {
		logging.ErrorWithContext(logger, "member form submission failed", "submit_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun this key with --letter once the console is reachable"),
		)
		for _, addr := range addresses {
			report.Failed = append(report.Failed, Failure{Key: page.Key, Address: addr, Err: err})
		}
		return
	}

	if result.DryRun {
		for _, addr := range result.Affected {
			report.WouldUnblock = append(report.WouldUnblock, Entry{Key: page.Key, Address: addr})
			logger.Info("would unblock", logging.String(logging.FieldAddress, addr))
		}
		return
	}
	for _, addr := range result.Confirmed {
		report.Unblocked = append(report.Unblocked, Entry{Key: page.Key, Address: addr})
		logger.Info("unblocked", logging.String(logging.FieldAddress, addr))
	}
	for _, addr := range result.Unconfirmed {
		logger.Info("flag did not stay cleared; trying bounce fallback",
			logging.String(logging.FieldEventType, "fallback_started"),
			logging.String(logging.FieldAddress, addr),
		)
		outcome := r.fallback.Run(services.WithStage(work, "fallback"), page.Key, addr)
		report.Fallback = append(report.Fallback, outcome)
	}
}

// blankPage reports whether a directory page has neither forms nor text, as
// served for a key with nothing under it.
func blankPage(html []byte, conv form.Convention) bool {
	model, err := form.Parse(html, conv)
	if err != nil {
		return false
	}
	return len(model.Forms) == 0 && strings.TrimSpace(model.Text) == ""
}

// IsFatal reports whether err must stop the run before any key is processed.
func IsFatal(err error) bool {
	var authErr *console.AuthError
	return errors.As(err, &authErr) || services.IsFatal(err)
}
