package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"aniportrait/internal/catalog"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "nested", catalog.DatabaseName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, catalog.Run{
		RequestID:     "req-1",
		Mode:          "audio",
		ReferencePath: "/in/face.png",
		DriverPath:    "/in/speech.wav",
		Width:         512,
		Height:        512,
		FPS:           30,
		Seed:          42,
		CFG:           3.5,
		Steps:         25,
	})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.Status != catalog.StatusRunning {
		t.Fatalf("status = %q, want running", run.Status)
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}

	if err := store.CompleteRun(ctx, run.ID, "/out/face_speech_512x512_3_101010.mp4"); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}
	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != catalog.StatusCompleted || got.OutputPath == "" {
		t.Fatalf("unexpected run after completion: %+v", got)
	}
	if !got.Status.IsTerminal() {
		t.Fatal("completed should be terminal")
	}

	if err := store.CompleteRun(ctx, run.ID, "/out/again.mp4"); !errors.Is(err, catalog.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound when finishing twice, got %v", err)
	}
}

func TestFailRunRecordsClassification(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, catalog.Run{RequestID: "req-2", Mode: "pose", ReferencePath: "a.png", DriverPath: "b.mp4"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.FailRun(ctx, run.ID, catalog.StatusCompleted, "x", "y"); err == nil {
		t.Fatal("expected error for non-failure status")
	}
	if err := store.FailRun(ctx, run.ID, catalog.StatusRejected, "invalid_path", "missing file"); err != nil {
		t.Fatalf("FailRun: %v", err)
	}
	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != catalog.StatusRejected || got.ErrorKind != "invalid_path" || got.ErrorMessage != "missing file" {
		t.Fatalf("unexpected run: %+v", got)
	}
}

func TestListRunsFiltersAndLimits(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	ids := make([]int64, 0, 3)
	for _, rid := range []string{"a", "b", "c"} {
		run, err := store.BeginRun(ctx, catalog.Run{RequestID: rid, Mode: "audio", ReferencePath: "r", DriverPath: "d"})
		if err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		ids = append(ids, run.ID)
	}
	if err := store.FailRun(ctx, ids[0], catalog.StatusFailed, "external_tool", "ffmpeg exited"); err != nil {
		t.Fatalf("FailRun: %v", err)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 || all[0].RequestID != "c" {
		t.Fatalf("expected newest first, got %d runs", len(all))
	}

	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}

	failed, err := store.ListRuns(ctx, 0, catalog.StatusFailed)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(failed) != 1 || failed[0].RequestID != "a" {
		t.Fatalf("unexpected failed runs: %+v", failed)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetRun(context.Background(), 99); !errors.Is(err, catalog.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestTemplatesUpsert(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.AddTemplate(ctx, catalog.Template{Path: "/out/1_pose.npy", SourceVideo: "/in/a.mp4", Frames: 30, FPS: 30}); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	tpl, err := store.AddTemplate(ctx, catalog.Template{Path: "/out/1_pose.npy", SourceVideo: "/in/b.mp4", Frames: 60, FPS: 30})
	if err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	if tpl.SourceVideo != "/in/b.mp4" || tpl.Frames != 60 {
		t.Fatalf("expected upsert to replace fields, got %+v", tpl)
	}

	list, err := store.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 template, got %d", len(list))
	}

	missing, err := store.FindTemplate(ctx, "/nope.npy")
	if err != nil || missing != nil {
		t.Fatalf("expected nil template, got %+v err=%v", missing, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), catalog.DatabaseName)
	ctx := context.Background()

	store, err := catalog.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.BeginRun(ctx, catalog.Run{RequestID: "keep", Mode: "audio", ReferencePath: "r", DriverPath: "d"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_ = store.Close()

	reopened, err := catalog.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d err=%v", len(runs), err)
	}
}
