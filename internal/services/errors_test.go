package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mmunblock/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "crawl", "fetch", "letter b", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"crawl", "fetch", "letter b"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error string %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if !services.IsFatal(services.Wrap(services.ErrAuthentication, "auth", "login", "rejected", nil)) {
		t.Fatal("expected authentication failure to be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrTransient, "crawl", "fetch", "", errors.New("io"))) {
		t.Fatal("expected transient failure to be recoverable")
	}
	if services.IsFatal(nil) {
		t.Fatal("expected nil to be non-fatal")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.IndexKeyFromContext(ctx); ok {
		t.Fatal("expected no index key on empty context")
	}
	ctx = services.WithIndexKey(ctx, "b")
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "run-1")
	if key, ok := services.IndexKeyFromContext(ctx); !ok || key != "b" {
		t.Fatalf("unexpected index key %q", key)
	}
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be ignored")
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id %q", id)
	}
}
