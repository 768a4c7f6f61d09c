package unblock

import (
	"context"
	"log/slog"
	"slices"

	"mmunblock/internal/console"
	"mmunblock/internal/diagnostics"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
)

// SubmissionResult is the outcome of one page's mutation.
type SubmissionResult struct {
	Key    string
	Status int
	// Affected are the addresses the plan targeted.
	Affected []string
	// Confirmed addresses were Clear on the re-fetched page.
	Confirmed []string
	// Unconfirmed addresses were still flagged, or could not be checked.
	Unconfirmed []string
	DryRun      bool
}

// Submitter posts mutation plans and verifies them against a fresh page.
type Submitter struct {
	session  *console.Session
	recorder *diagnostics.Recorder
	logger   *slog.Logger
}

// NewSubmitter builds a submitter on an authenticated session.
func NewSubmitter(session *console.Session, recorder *diagnostics.Recorder, logger *slog.Logger) *Submitter {
	return &Submitter{
		session:  session,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "submitter"),
	}
}

// Submit applies plan to the member form of page. In dry-run mode, or when
// the plan is empty, no request is made. A live submission posts the whole
// form in document order with only the planned flags cleared, then re-fetches
// the page and checks the affected addresses.
func (s *Submitter) Submit(ctx context.Context, page console.DirectoryPage, model *form.Model, plan form.MutationPlan, dryRun bool) (SubmissionResult, error) {
	result := SubmissionResult{
		Key:      page.Key,
		Affected: slices.Clone(plan.Addresses),
		DryRun:   dryRun,
	}
	if plan.Empty() {
		return result, nil
	}
	logger := logging.WithContext(ctx, s.logger)
	conv := s.session.Convention()

	submitted := plan.Apply(model)
	payload := submitted.Serialize(conv.SubmitButton, conv.SubmitValue)
	s.recorder.RecordPayload(diagnostics.StagePayload, page.Key, payload)
	if dryRun {
		return result, nil
	}

	action, err := console.ResolveAction(page.URL, submitted.Action)
	if err != nil {
		return result, &SubmissionError{Key: page.Key, Addresses: result.Affected, Err: err}
	}
	resp, err := s.session.PostForm(ctx, action, payload, page.Charset)
	if err != nil {
		return result, &SubmissionError{Key: page.Key, Addresses: result.Affected, Err: err}
	}
	result.Status = resp.Status
	s.recorder.Record(diagnostics.StagePostSubmitResponse, page.Key, resp.Body)
	logger.Debug("member form submitted",
		logging.String(logging.FieldEventType, "member_form_submitted"),
		logging.Int("status", resp.Status),
		logging.Int("cleared", len(plan.Clear)),
	)

	result.Confirmed, result.Unconfirmed = s.verify(ctx, logger, page.Key, result.Affected)
	return result, nil
}

// verify re-fetches the page and splits addresses into Clear and not Clear.
// When the page cannot be read every address counts as unconfirmed.
func (s *Submitter) verify(ctx context.Context, logger *slog.Logger, key string, addresses []string) (confirmed, unconfirmed []string) {
	fresh := s.session.FetchDirectory(ctx, key)
	if fresh.Err != nil {
		logging.WarnWithContext(logger, "verification fetch failed", "verify_fetch_failed",
			logging.Error(fresh.Err),
			logging.String(logging.FieldImpact, "affected members are handed to the bounce fallback"),
		)
		return nil, slices.Clone(addresses)
	}
	s.recorder.Record(diagnostics.StagePostSubmitPage, key, fresh.HTML)

	model, err := form.Extract(fresh.HTML, s.session.Convention())
	if err != nil {
		logging.WarnWithContext(logger, "verification page unreadable", "verify_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "affected members are handed to the bounce fallback"),
		)
		return nil, slices.Clone(addresses)
	}
	states := model.States(s.session.Convention())
	for _, addr := range addresses {
		if state, listed := states[addr]; listed && state == form.Clear {
			confirmed = append(confirmed, addr)
			continue
		}
		unconfirmed = append(unconfirmed, addr)
	}
	return confirmed, unconfirmed
}
