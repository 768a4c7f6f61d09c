package console_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"mmunblock/internal/console"
	"mmunblock/internal/services"
	"mmunblock/internal/testsupport"
	"mmunblock/internal/testsupport/fakeconsole"
)

func TestAuthenticateSubmitsCredentialWithHiddenFields(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithMembers(fakeconsole.Member{Address: "alice@example.org", Blocked: true}))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))

	session, err := console.Authenticate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
	if got := fake.LoginPosts(); got != 1 {
		t.Fatalf("expected one login post, got %d", got)
	}

	page := session.FetchDirectory(context.Background(), "a")
	if page.Err != nil {
		t.Fatalf("FetchDirectory after login: %v", page.Err)
	}
	if !strings.Contains(string(page.HTML), "alice%40example.org_nomail") {
		t.Fatalf("expected authenticated directory page, got %q", page.HTML)
	}
}

func TestAuthenticateReusesExistingSession(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithOpenAccess())
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))

	if _, err := console.Authenticate(context.Background(), cfg); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got := fake.LoginPosts(); got != 0 {
		t.Fatalf("expected no credential to be sent, got %d login posts", got)
	}
}

func TestAuthenticateRejectedCredential(t *testing.T) {
	fake := fakeconsole.New(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithConsole(fake.URL()),
		testsupport.WithPassword("wrong"),
	)

	_, err := console.Authenticate(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected authentication failure")
	}
	var authErr *console.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("expected authentication failure to be fatal")
	}
	if strings.Contains(err.Error(), "wrong") {
		t.Fatalf("error leaks the credential: %v", err)
	}
}

func TestAuthenticateAdminPageForbidden(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithForbiddenAdmin())
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))

	_, err := console.Authenticate(context.Background(), cfg)
	var authErr *console.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	var fetchErr *console.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != 403 {
		t.Fatalf("expected wrapped 403 fetch error, got %v", err)
	}
	if fake.LoginPosts() != 0 {
		t.Fatal("credential must not be sent after a rejected probe")
	}
}

func TestAuthenticateLoginFormServedWithErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		fake := fakeconsole.New(t, fakeconsole.WithLoginStatus(status))
		cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()))

		if _, err := console.Authenticate(context.Background(), cfg); err != nil {
			t.Fatalf("status %d: Authenticate: %v", status, err)
		}
		if fake.LoginPosts() != 1 {
			t.Fatalf("status %d: expected one credential post, got %d", status, fake.LoginPosts())
		}
	}
}

func TestAuthenticateRejectedCredentialWithErrorStatus(t *testing.T) {
	fake := fakeconsole.New(t, fakeconsole.WithLoginStatus(http.StatusUnauthorized))
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(fake.URL()), testsupport.WithPassword("wrong"))

	_, err := console.Authenticate(context.Background(), cfg)
	var authErr *console.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != "credential rejected" {
		t.Fatalf("expected credential rejection, got %v", err)
	}
}

func TestAuthenticateUnreachableConsole(t *testing.T) {
	fake := fakeconsole.New(t)
	url := fake.URL()
	fake.Server.Close()
	cfg := testsupport.NewConfig(t, testsupport.WithConsole(url))

	_, err := console.Authenticate(context.Background(), cfg)
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestResolveAction(t *testing.T) {
	tests := []struct {
		page, action, want string
	}{
		{"https://lists.example.org/mailman/admin/announce/members?letter=b", "../members", "https://lists.example.org/mailman/admin/members"},
		{"https://lists.example.org/mailman/admin/announce/members", "/mailman/admin/announce/members", "https://lists.example.org/mailman/admin/announce/members"},
		{"https://lists.example.org/mailman/admin/announce/members?letter=b", "", "https://lists.example.org/mailman/admin/announce/members?letter=b"},
		{"https://lists.example.org/x", "https://other.example.org/post", "https://other.example.org/post"},
	}
	for _, tt := range tests {
		got, err := console.ResolveAction(tt.page, tt.action)
		if err != nil {
			t.Fatalf("ResolveAction(%q, %q): %v", tt.page, tt.action, err)
		}
		if got != tt.want {
			t.Fatalf("ResolveAction(%q, %q) = %q, want %q", tt.page, tt.action, got, tt.want)
		}
	}
}
