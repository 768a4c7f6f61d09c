package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mmunblock/internal/config"
	"mmunblock/internal/console"
	"mmunblock/internal/diagnostics"
	"mmunblock/internal/history"
	"mmunblock/internal/logging"
	"mmunblock/internal/unblock"
)

type runOptions struct {
	dryRun         bool
	live           bool
	letter         string
	letters        string
	verbose        bool
	diagnostics    bool
	diagnosticsDir string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Find blocked members and clear their delivery block",
		Long: `Crawl the member directory one index key at a time and clear the
administrative delivery block of every blocked member.

Without --live nothing is changed: the blocked members are only reported.
Credentials come from the config file or MAILMAN_BASE_URL, MAILMAN_LIST_NAME
and MAILMAN_ADMIN_PW.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, opts); err != nil {
				return err
			}
			return executeRun(cmd, ctx, cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report blocked members without changing anything (default)")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Submit changes to the console")
	cmd.Flags().StringVar(&opts.letter, "letter", "", "Process a single index key")
	cmd.Flags().StringVar(&opts.letters, "letters", "", "Index keys to process, e.g. 1,a-f,xyz")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Write redacted page and payload artifacts")
	cmd.Flags().StringVar(&opts.diagnosticsDir, "diagnostics-dir", "", "Directory for diagnostics artifacts")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "live")
	cmd.MarkFlagsMutuallyExclusive("letter", "letters")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	switch {
	case opts.live:
		cfg.Run.DryRun = false
	case opts.dryRun:
		cfg.Run.DryRun = true
	}
	if cmd.Flags().Changed("letter") {
		keys, err := config.ParseKeys(opts.letter)
		if err != nil {
			return fmt.Errorf("--letter: %w", err)
		}
		if len(keys) != 1 {
			return fmt.Errorf("--letter takes a single index key, got %q", opts.letter)
		}
		cfg.Run.Letters = keys[0]
	}
	if cmd.Flags().Changed("letters") {
		cfg.Run.Letters = opts.letters
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.diagnostics {
		cfg.Diagnostics.Enabled = true
	}
	if dir := strings.TrimSpace(opts.diagnosticsDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("--diagnostics-dir: %w", err)
		}
		cfg.Diagnostics.Dir = expanded
		cfg.Diagnostics.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.ValidateConsole()
}

func executeRun(cmd *cobra.Command, ctx *commandContext, cfg *config.Config) error {
	keys, err := cfg.Keys()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := uuid.NewString()
	logger, err := ctx.newLogger(cfg, cmd.ErrOrStderr(), runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another mmunblock run is already working on list %s (lock %s)", cfg.Console.ListName, cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	session, err := console.Authenticate(runCtx, cfg, console.WithLogger(logger))
	if err != nil {
		logging.ErrorWithContext(logger, "authentication failed", "auth_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check console.base_url, console.list_name and the admin password"),
		)
		return err
	}

	recorder := diagnostics.New(cfg, runID, logger)
	runner := unblock.NewRunner(session, cfg,
		unblock.WithRecorder(recorder),
		unblock.WithLogger(logger),
		unblock.WithRunID(runID),
	)
	report := runner.Run(runCtx, keys)

	recordHistory(context.WithoutCancel(runCtx), cfg, report, logger)
	writeReport(cmd.OutOrStdout(), report, recorder.Dir())

	if report.Problems() {
		logging.WarnWithContext(logger, "run finished with unresolved members or skipped keys", "run_incomplete",
			logging.Int("skipped", len(report.Skipped)),
			logging.Int("failed", len(report.Failed)),
			logging.Int("exhausted", len(report.Exhausted())),
			logging.String(logging.FieldErrorHint, "rerun the affected keys with --letter, with --diagnostics for details"),
			logging.String(logging.FieldImpact, "some members may still be blocked"),
		)
	}
	if report.Interrupted {
		if err := runCtx.Err(); err != nil {
			return err
		}
		return errors.New("run interrupted")
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, report *unblock.Report, logger *slog.Logger) {
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not listed by 'mmunblock history'"),
		)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, cfg.Console.ListName, report); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not listed by 'mmunblock history'"),
		)
	}
}
