package console_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mmunblock/internal/console"
	"mmunblock/internal/form"
	"mmunblock/internal/testsupport"
	"mmunblock/internal/testsupport/fakeconsole"
)

func TestPagesContinuesPastFailedKeys(t *testing.T) {
	fake := fakeconsole.New(t,
		fakeconsole.WithMembers(
			fakeconsole.Member{Address: "alice@example.org", Blocked: true},
			fakeconsole.Member{Address: "carol@example.org"},
		),
		fakeconsole.WithNetworkFailure("b"),
		fakeconsole.WithStatus("c", http.StatusInternalServerError),
	)
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))
	session, err := console.Authenticate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	var keys []string
	var failed []string
	for page := range session.Pages(context.Background(), []string{"a", "b", "c", "d"}) {
		keys = append(keys, page.Key)
		if page.Err != nil {
			failed = append(failed, page.Key)
			if len(page.HTML) != 0 {
				t.Fatalf("failed page %s carries html", page.Key)
			}
		}
	}
	if strings.Join(keys, "") != "abcd" {
		t.Fatalf("expected keys in order, got %v", keys)
	}
	if strings.Join(failed, "") != "bc" {
		t.Fatalf("expected b and c to fail, got %v", failed)
	}
}

func TestFetchDirectoryStatusError(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithOpenAccess(), fakeconsole.WithStatus("x", http.StatusBadGateway))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))
	session, err := console.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	page := session.FetchDirectory(context.Background(), "x")
	var fetchErr *console.FetchError
	if !errors.As(page.Err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", page.Err)
	}
	if fetchErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", fetchErr.Status)
	}
}

func TestPagesStopsWhenCancelled(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithOpenAccess())
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))
	session, err := console.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []string
	for page := range session.Pages(ctx, []string{"a", "b", "c"}) {
		seen = append(seen, page.Key)
		cancel()
	}
	if len(seen) != 1 || seen[0] != "a" {
		t.Fatalf("expected only the first key before cancellation, got %v", seen)
	}
}

func TestDirectoryURLs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConsole("https://lists.example.org"))
	session, err := console.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if got := session.DirectoryURL("b"); got != "https://lists.example.org/mailman/admin/announce/members?letter=b" {
		t.Fatalf("unexpected directory url %q", got)
	}
	if got := session.OptionsURL("a+b@example.org"); got != "https://lists.example.org/mailman/options/announce/a+b@example.org" {
		t.Fatalf("unexpected options url %q", got)
	}
}

func TestSessionDecodesDeclaredCharset(t *testing.T) {
	page := "<html><body><form action=\"m\" method=\"post\">" +
		"<input type=\"hidden\" name=\"note\" value=\"Zo\xeb\">" +
		"<input type=\"submit\" name=\"setmemberopts_btn\" value=\"go\"></form></body></html>"
	var posted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			data, _ := io.ReadAll(r.Body)
			posted = string(data)
		}
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithConsole(srv.URL))
	session, err := console.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	resp, err := session.Get(context.Background(), srv.URL+"/m")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	model, err := form.Parse(resp.Body, session.Convention())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := model.Forms[0].Fields[0].Value; got != "Zoë" {
		t.Fatalf("expected decoded value, got %q", got)
	}

	payload := model.Forms[0].Serialize("setmemberopts_btn", "go")
	if _, err := session.PostForm(context.Background(), srv.URL+"/m", payload, resp.Charset); err != nil {
		t.Fatalf("PostForm: %v", err)
	}
	if !strings.Contains(posted, "note=Zo%EB") {
		t.Fatalf("expected latin-1 encoded payload, got %q", posted)
	}
}
