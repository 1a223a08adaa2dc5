package services_test

import (
	"context"
	"testing"

	"aniportrait/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithMode(ctx, "audio")
	ctx = services.WithStage(ctx, "reproject")
	ctx = services.WithRequestID(ctx, "req-123")

	if mode, ok := services.ModeFromContext(ctx); !ok || mode != "audio" {
		t.Fatalf("unexpected mode: %v %v", mode, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "reproject" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
