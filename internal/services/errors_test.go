package services_test

import (
	"errors"
	"strings"
	"testing"

	"aniportrait/internal/catalog"
	"aniportrait/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "mux", "ffmpeg", "merge failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mux", "ffmpeg", "merge failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	noFace := services.Wrap(services.ErrNoFaceDetected, "extract", "reference", "no face", nil)
	if status := services.FailureStatus(noFace); status != catalog.StatusRejected {
		t.Fatalf("expected rejected for missing face, got %s", status)
	}

	toolErr := services.Wrap(services.ErrExternalTool, "mux", "ffmpeg", "exit 1", errors.New("io"))
	if status := services.FailureStatus(toolErr); status != catalog.StatusFailed {
		t.Fatalf("expected failed for tool error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != catalog.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrEmptySequence, "cycle", "", "", nil), "empty_sequence"},
		{services.Wrap(services.ErrInterpolationRange, "resample", "", "", nil), "interpolation_range"},
		{services.Wrap(services.ErrInvalidPath, "input", "", "", nil), "invalid_path"},
		{errors.New("plain"), "internal"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
