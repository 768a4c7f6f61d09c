package unblock

import (
	"fmt"
	"time"

	"mmunblock/internal/fallback"
)

// Entry names one member on one directory page.
type Entry struct {
	Key     string
	Address string
}

// Failure is an address whose submission failed.
type Failure struct {
	Key     string
	Address string
	Err     error
}

// Skip is an index key that could not be processed.
type Skip struct {
	Key string
	Err error
}

// Report is the complete account of one run.
type Report struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Keys lists every key whose page was examined, in order.
	Keys         []string
	Unblocked    []Entry
	WouldUnblock []Entry
	Fallback     []fallback.Outcome
	Failed       []Failure
	Skipped      []Skip
	// Interrupted is set when cancellation stopped the crawl early.
	Interrupted bool
}

// Total is the number of members unblocked, or that would be in dry-run mode.
func (r *Report) Total() int {
	if r.DryRun {
		return len(r.WouldUnblock)
	}
	total := len(r.Unblocked)
	for _, o := range r.Fallback {
		if o.Unblocked() {
			total++
		}
	}
	return total
}

// ViaFallback counts members unblocked by the bounce fallback.
func (r *Report) ViaFallback() int {
	n := 0
	for _, o := range r.Fallback {
		if o.Unblocked() {
			n++
		}
	}
	return n
}

// Exhausted lists fallback outcomes that left the member blocked.
func (r *Report) Exhausted() []fallback.Outcome {
	var out []fallback.Outcome
	for _, o := range r.Fallback {
		if !o.Unblocked() {
			out = append(out, o)
		}
	}
	return out
}

// Problems reports whether any key was skipped, any submission failed, any
// fallback was exhausted, or the run was interrupted.
func (r *Report) Problems() bool {
	return len(r.Failed) > 0 || len(r.Skipped) > 0 || len(r.Exhausted()) > 0 || r.Interrupted
}

// Summary is the final totals line.
func (r *Report) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run complete. Would unblock %d member(s) total.", r.Total())
	}
	return fmt.Sprintf("Done. Unblocked %d member(s) total.", r.Total())
}

// Row is one line of the rendered report.
type Row struct {
	Key     string
	Address string
	Outcome string
	Detail  string
}

// Rows flattens the report in a stable order: successes first, then fallback
// results, failures, and skipped keys.
func (r *Report) Rows() []Row {
	var rows []Row
	for _, e := range r.WouldUnblock {
		rows = append(rows, Row{Key: e.Key, Address: e.Address, Outcome: "would unblock"})
	}
	for _, e := range r.Unblocked {
		rows = append(rows, Row{Key: e.Key, Address: e.Address, Outcome: "unblocked"})
	}
	for _, o := range r.Fallback {
		row := Row{Key: o.Key, Address: o.Address}
		if o.Unblocked() {
			row.Outcome = "unblocked via fallback"
			row.Detail = fmt.Sprintf("%d attempt(s)", o.Attempts)
		} else {
			row.Outcome = "fallback exhausted"
			row.Detail = o.Reason
			if o.Err != nil {
				row.Detail += ": " + o.Err.Error()
			}
		}
		rows = append(rows, row)
	}
	for _, f := range r.Failed {
		rows = append(rows, Row{Key: f.Key, Address: f.Address, Outcome: "failed", Detail: errString(f.Err)})
	}
	for _, s := range r.Skipped {
		rows = append(rows, Row{Key: s.Key, Outcome: "skipped", Detail: errString(s.Err)})
	}
	return rows
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
