package ffprobe

import (
	"math"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 512, "height": 512,
     "r_frame_rate": "30/1", "avg_frame_rate": "30000/1001", "nb_frames": "90", "duration": "3.003"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2}
  ],
  "format": {"filename": "drive.mp4", "nb_streams": 2, "duration": "3.010", "format_name": "mov,mp4"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stream, ok := result.VideoStream()
	if !ok || stream.Width != 512 {
		t.Fatalf("unexpected video stream %+v", stream)
	}
	if !result.HasAudio() || result.AudioStreamCount() != 1 {
		t.Fatalf("expected one audio stream")
	}
	if math.Abs(result.FrameRate()-29.97002997) > 1e-6 {
		t.Fatalf("unexpected frame rate %v", result.FrameRate())
	}
	if result.FrameCount() != 90 {
		t.Fatalf("unexpected frame count %d", result.FrameCount())
	}
	if result.DurationSeconds() != 3.01 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw payload")
	}
}

func TestFrameCountFallsBackToDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", RFrameRate: "25/1", AvgFrameRate: "0/0"}},
		Format:  Format{Duration: "2.0"},
	}
	if result.FrameRate() != 25 {
		t.Fatalf("expected r_frame_rate fallback, got %v", result.FrameRate())
	}
	if result.FrameCount() != 50 {
		t.Fatalf("expected estimated 50 frames, got %d", result.FrameCount())
	}
}

func TestHelpersWithoutVideo(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if result.FrameRate() != 0 || result.FrameCount() != 0 {
		t.Fatal("expected zero rate and count without a video stream")
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN duration, got %v", result.DurationSeconds())
	}
	if _, err := Parse([]byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}
