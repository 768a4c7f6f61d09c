package fallback_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"mmunblock/internal/config"
	"mmunblock/internal/console"
	"mmunblock/internal/diagnostics"
	"mmunblock/internal/fallback"
	"mmunblock/internal/form"
	"mmunblock/internal/testsupport"
	"mmunblock/internal/testsupport/fakeconsole"
)

func newController(t *testing.T, cfg *config.Config, opts ...fallback.Option) *fallback.Controller {
	t.Helper()
	session, err := console.Authenticate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return fallback.New(session, cfg, opts...)
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func TestRunVerifiesOnFirstAttempt(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{Address: "held@example.org", BounceHold: true}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive())
	sleeps := &sleepRecorder{}

	out := newController(t, cfg, fallback.WithSleeper(sleeps.sleep)).Run(context.Background(), "h", "held@example.org")

	if out.State != fallback.Verified || out.Attempts != 1 || !out.BounceFound {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(sleeps.calls) != 0 {
		t.Fatalf("no backoff expected, got %v", sleeps.calls)
	}
	posts := fake.OptionsPosts()
	if len(posts) != 1 {
		t.Fatalf("expected one options post, got %d", len(posts))
	}
	payload, err := form.ParsePayload(posts[0])
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if strings.Join(payload.Names(), ",") != "csrf_token,disablemail,options-submit" {
		t.Fatalf("unexpected options payload %v", payload.Names())
	}
	if v, _ := payload.Get("disablemail"); v != "0" {
		t.Fatalf("disablemail = %q, want 0", v)
	}
}

func TestRunRetriesWithBackoff(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{
		Address: "held@example.org", BounceHold: true, BounceClearFailures: 1,
	}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive(), testsupport.WithDiagnostics())
	cfg.Fallback.BackoffMS = 250
	sleeps := &sleepRecorder{}
	rec := diagnostics.New(cfg, "retry", nil)

	out := newController(t, cfg, fallback.WithSleeper(sleeps.sleep), fallback.WithRecorder(rec)).
		Run(context.Background(), "h", "held@example.org")

	if out.State != fallback.Verified || out.Attempts != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(sleeps.calls) != 1 || sleeps.calls[0] != 250*time.Millisecond {
		t.Fatalf("unexpected backoff %v", sleeps.calls)
	}
	files := testsupport.ReadTree(t, rec.Dir())
	for _, name := range []string{"001-h-bounce-view.html", "005-h-bounce-view-attempt2.html", "008-h-bounce-verify-page-attempt2.html"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing artifact %s in %v", name, testsupport.SortedKeys(files))
		}
	}
}

func TestRunExhaustsAttempts(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{
		Address: "held@example.org", BounceHold: true, BounceClearFailures: 5,
	}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive(), testsupport.WithMaxAttempts(3))
	sleeps := &sleepRecorder{}

	out := newController(t, cfg, fallback.WithSleeper(sleeps.sleep)).Run(context.Background(), "h", "held@example.org")

	if out.State != fallback.Exhausted || out.Attempts != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Reason != "still blocked after 3 attempt(s)" {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
	if len(fake.OptionsPosts()) != 3 || len(sleeps.calls) != 2 {
		t.Fatalf("posts=%d sleeps=%d", len(fake.OptionsPosts()), len(sleeps.calls))
	}
}

func TestRunWithoutBounceIsExhausted(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{Address: "stuck@example.org", Blocked: true, Sticky: true}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive())

	out := newController(t, cfg).Run(context.Background(), "s", "stuck@example.org")

	if out.State != fallback.Exhausted || out.BounceFound || out.Reason != "no bounce disablement found" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if fake.Mutations() != 0 {
		t.Fatalf("expected no mutation, got %d", fake.Mutations())
	}
}

func TestRunStopsWhenBackoffCancelled(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{
		Address: "held@example.org", BounceHold: true, BounceClearFailures: 5,
	}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive())
	cancelled := func(context.Context, time.Duration) error { return context.Canceled }

	out := newController(t, cfg, fallback.WithSleeper(cancelled)).Run(context.Background(), "h", "held@example.org")

	if out.State != fallback.Exhausted || out.Attempts != 1 || out.Reason != "cancelled" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestStateString(t *testing.T) {
	tests := map[fallback.State]string{
		fallback.Idle:                 "idle",
		fallback.BounceCheck:          "bounce-check",
		fallback.BounceClearSubmitted: "bounce-clear-submitted",
		fallback.Verified:             "verified",
		fallback.Exhausted:            "exhausted",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fallback.SleepWithContext(ctx, time.Hour); err == nil {
		t.Fatal("expected cancellation error")
	}
	if err := fallback.SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}

func TestRunReverifiesWhenDirectoryLagsBehindClear(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{
		Address: "held@example.org", BounceHold: true, DirectoryLag: 1,
	}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithLive(), testsupport.WithMaxAttempts(3))
	sleeps := &sleepRecorder{}

	out := newController(t, cfg, fallback.WithSleeper(sleeps.sleep)).Run(context.Background(), "h", "held@example.org")

	if out.State != fallback.Verified || out.Attempts != 2 || !out.BounceFound {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := len(fake.OptionsPosts()); got != 1 {
		t.Fatalf("accepted clear must not be re-submitted, got %d options posts", got)
	}
	if len(sleeps.calls) != 1 {
		t.Fatalf("expected one backoff before re-verifying, got %v", sleeps.calls)
	}
	verifies := 0
	for _, req := range fake.Requests() {
		if req == "GET /mailman/admin/announce/members?letter=h" {
			verifies++
		}
	}
	if verifies != 2 {
		t.Fatalf("expected two directory verifications, got %d in %v", verifies, fake.Requests())
	}
}

func TestStateTerminal(t *testing.T) {
	for _, state := range []fallback.State{fallback.Idle, fallback.BounceCheck, fallback.BounceClearSubmitted} {
		if state.Terminal() {
			t.Fatalf("%s must not be terminal", state)
		}
	}
	for _, state := range []fallback.State{fallback.Verified, fallback.Exhausted} {
		if !state.Terminal() {
			t.Fatalf("%s must be terminal", state)
		}
	}
}
