package ffmpeg

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"aniportrait/internal/logging"
	"aniportrait/internal/services"
)

func streamRunner(payload []byte, runErr error) CommandRunner {
	return func(_ context.Context, _ string, _ []string, stdout io.Writer) error {
		if stdout != nil && len(payload) > 0 {
			if _, err := stdout.Write(payload); err != nil {
				return err
			}
		}
		return runErr
	}
}

func TestDecodeFramesDeliversRGBA(t *testing.T) {
	tool := New("ffmpeg", logging.NewNop())
	// two 2x1 frames
	tool.WithCommandRunner(streamRunner([]byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}, nil))

	var frames []*image.RGBA
	count, err := tool.DecodeFrames(context.Background(), "drive.mp4", image.Pt(2, 1), func(i int, f *image.RGBA) error {
		if i != len(frames) {
			t.Fatalf("frame index %d out of order", i)
		}
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		t.Fatalf("DecodeFrames: %v", err)
	}
	if count != 2 || len(frames) != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if got := frames[1].RGBAAt(1, 0); got.R != 10 || got.G != 20 || got.B != 30 || got.A != 255 {
		t.Fatalf("unexpected pixel %+v", got)
	}
}

func TestDecodeFramesReportsTruncation(t *testing.T) {
	tool := New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(streamRunner([]byte{1, 2, 3, 4, 5, 6, 7}, nil))
	count, err := tool.DecodeFrames(context.Background(), "drive.mp4", image.Pt(2, 1), func(int, *image.RGBA) error { return nil })
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestDecodeFramesSurfacesToolFailure(t *testing.T) {
	tool := New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(streamRunner(nil, errors.New("exit status 1: moov atom not found")))
	_, err := tool.DecodeFrames(context.Background(), "drive.mp4", image.Pt(2, 1), func(int, *image.RGBA) error { return nil })
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDecodeFramesStopsOnCallbackError(t *testing.T) {
	tool := New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(streamRunner(make([]byte, 6*10), nil))
	stop := errors.New("no face")
	count, err := tool.DecodeFrames(context.Background(), "drive.mp4", image.Pt(2, 1), func(i int, _ *image.RGBA) error {
		if i == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestEncodeFramesBuildsArguments(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out_noaudio.mp4")
	var gotArgs []string
	tool := New("/opt/ffmpeg", logging.NewNop())
	tool.WithCommandRunner(func(_ context.Context, name string, args []string, _ io.Writer) error {
		if name != "/opt/ffmpeg" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
	})
	if err := tool.EncodeFrames(context.Background(), filepath.Join(dir, "frame_%05d.png"), 29.97, output); err != nil {
		t.Fatalf("EncodeFrames: %v", err)
	}
	idx := slices.Index(gotArgs, "-framerate")
	if idx < 0 || gotArgs[idx+1] != "29.97" {
		t.Fatalf("expected framerate argument, got %v", gotArgs)
	}
	if err := tool.EncodeFrames(context.Background(), "x", 0, output); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero fps, got %v", err)
	}
}

func TestMuxRenamesOutputAndKeepsInputs(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "face_speech_512x512_3_101010_noaudio.mp4")
	audio := filepath.Join(dir, "speech.wav")
	for _, p := range []string{video, audio} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	tool := New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(func(_ context.Context, _ string, args []string, _ io.Writer) error {
		if !slices.Contains(args, "copy") || !slices.Contains(args, "aac") {
			t.Fatalf("unexpected args %v", args)
		}
		return os.WriteFile(args[len(args)-1], []byte("muxed"), 0o644)
	})

	out, err := tool.Mux(context.Background(), video, audio)
	if err != nil {
		t.Fatalf("Mux: %v", err)
	}
	if want := filepath.Join(dir, "face_speech_512x512_3_101010.mp4"); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != "muxed" {
		t.Fatalf("unexpected output content %q err=%v", data, err)
	}
	if _, err := os.Stat(video); err != nil {
		t.Fatalf("mux should leave the input video in place: %v", err)
	}
}

func TestMuxFailureCleansTemp(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "a_noaudio.mp4")
	audio := filepath.Join(dir, "a.aac")
	for _, p := range []string{video, audio} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	tool := New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(func(_ context.Context, _ string, args []string, _ io.Writer) error {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return errors.New("exit status 1")
	})
	if _, err := tool.Mux(context.Background(), video, audio); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected only the inputs to remain, got %d entries", len(entries))
	}
}

func TestMuxedPath(t *testing.T) {
	tests := map[string]string{
		"/out/a_noaudio.mp4": "/out/a.mp4",
		"/out/plain.mp4":     "/out/plain_audio.mp4",
	}
	for in, want := range tests {
		if got := MuxedPath(in); got != want {
			t.Fatalf("MuxedPath(%q) = %q, want %q", in, got, want)
		}
	}
}
