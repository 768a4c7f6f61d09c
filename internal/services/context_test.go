package services_test

import (
	"context"
	"testing"

	"mmunblock/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := services.WithIndexKey(context.Background(), "b")
	ctx = services.WithStage(ctx, "verify")
	ctx = services.WithRunID(ctx, "run-1")

	if key, ok := services.IndexKeyFromContext(ctx); !ok || key != "b" {
		t.Fatalf("index key = %q, %v", key, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "verify" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, %v", id, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	base := context.Background()
	if services.WithIndexKey(base, "") != base || services.WithStage(base, "") != base || services.WithRunID(base, "") != base {
		t.Fatal("empty values must not wrap the context")
	}
	if _, ok := services.IndexKeyFromContext(base); ok {
		t.Fatal("expected no index key on a bare context")
	}
}
