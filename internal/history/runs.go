package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mmunblock/internal/unblock"
)

// Outcome is one reported row of a run.
type Outcome struct {
	Key     string
	Address string
	Outcome string
	Detail  string
}

// Run is a persisted run with per-outcome counts.
type Run struct {
	ID          string
	ListName    string
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Keys        string
	Total       int
	Interrupted bool
	// Counts maps an outcome label such as "unblocked" to its row count.
	Counts map[string]int
}

// Record stores a finished run and every report row in one transaction.
func (s *Store) Record(ctx context.Context, listName string, report *unblock.Report) error {
	if report == nil {
		return fmt.Errorf("record run: nil report")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (id, list_name, dry_run, started_at, finished_at, keys, total, interrupted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			listName,
			boolToInt(report.DryRun),
			report.StartedAt.UTC().Format(timeLayout),
			report.FinishedAt.UTC().Format(timeLayout),
			strings.Join(report.Keys, ""),
			report.Total(),
			boolToInt(report.Interrupted),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, row := range report.Rows() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO outcomes (run_id, index_key, address, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
				report.RunID, row.Key, row.Address, row.Outcome, row.Detail,
			); err != nil {
				return fmt.Errorf("insert outcome: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

// Recent returns the newest runs first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, list_name, dry_run, started_at, COALESCE(finished_at, ''), keys, total, interrupted
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		counts, err := s.counts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Counts = counts
	}
	return runs, nil
}

// Outcomes returns the rows of one run in report order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT index_key, address, outcome, detail FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Key, &o.Address, &o.Outcome, &o.Detail); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func (s *Store) counts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1) FROM outcomes WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                   Run
		dryRun, interrupted   int
		startedAt, finishedAt string
	)
	if err := rows.Scan(&run.ID, &run.ListName, &dryRun, &startedAt, &finishedAt, &run.Keys, &run.Total, &interrupted); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.DryRun = dryRun != 0
	run.Interrupted = interrupted != 0
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
