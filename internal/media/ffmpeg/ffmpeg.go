package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"aniportrait/internal/logging"
	"aniportrait/internal/services"
)

// NoAudioSuffix marks the transient video written before muxing.
const NoAudioSuffix = "_noaudio"

// Tool runs ffmpeg subcommands.
type Tool struct {
	binary string
	logger *slog.Logger
	run    CommandRunner
}

// New constructs a Tool for the given ffmpeg binary.
func New(binary string, logger *slog.Logger) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (t *Tool) WithCommandRunner(r CommandRunner) {
	if t != nil && r != nil {
		t.run = r
	}
}

// FrameFunc receives decoded frames in order. Returning an error stops decoding.
type FrameFunc func(index int, frame *image.RGBA) error

// DecodeFrames streams every frame of path scaled to size.X x size.Y RGB and
// calls fn for each. It returns the number of frames delivered. The ffmpeg process is
// always reaped before returning.
func (t *Tool) DecodeFrames(ctx context.Context, path string, size image.Point, fn FrameFunc) (int, error) {
	if size.X <= 0 || size.Y <= 0 {
		return 0, services.Wrap(services.ErrValidation, "decode", "frames", fmt.Sprintf("%s: frame size %dx%d", path, size.X, size.Y), nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-v", "error", "-nostdin",
		"-i", path,
		"-vf", fmt.Sprintf("scale=%d:%d", size.X, size.Y),
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := t.run(ctx, t.binary, args, pw)
		_ = pw.CloseWithError(err)
		done <- err
	}()

	frameBytes := size.X * size.Y * 3
	buf := make([]byte, frameBytes)
	count := 0
	var readErr, frameErr error
	for {
		if _, err := io.ReadFull(pr, buf); err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		if err := fn(count, rgbToRGBA(buf, size)); err != nil {
			frameErr = err
			break
		}
		count++
	}

	cancel()
	_ = pr.Close()
	runErr := <-done

	switch {
	case frameErr != nil:
		return count, frameErr
	case runErr != nil:
		return count, services.Wrap(services.ErrExternalTool, "decode", "frames", path, runErr)
	case readErr != nil:
		return count, services.Wrap(services.ErrExternalTool, "decode", "frames",
			fmt.Sprintf("%s: truncated frame %d", path, count), readErr)
	}
	t.logger.Debug("decoded frames", logging.String("path", path), logging.Int("frames", count))
	return count, nil
}

// EncodeFrames encodes an image sequence (printf-style pattern) into an H.264 video.
func (t *Tool) EncodeFrames(ctx context.Context, pattern string, fps float64, output string) error {
	if fps <= 0 {
		return services.Wrap(services.ErrValidation, "encode", "frames", fmt.Sprintf("fps must be positive, got %v", fps), nil)
	}
	args := []string{
		"-y", "-v", "error", "-nostdin",
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", pattern,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		output,
	}
	if err := t.run(ctx, t.binary, args, nil); err != nil {
		_ = os.Remove(output)
		return services.Wrap(services.ErrExternalTool, "encode", "frames", output, err)
	}
	if _, err := os.Stat(output); err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "frames", "ffmpeg did not produce "+output, err)
	}
	t.logger.Debug("encoded frames", logging.String("output", output), logging.Float64("fps", fps))
	return nil
}

// ExtractAudio copies the audio stream of video into output without re-encoding.
func (t *Tool) ExtractAudio(ctx context.Context, video, output string) error {
	args := []string{"-y", "-v", "error", "-nostdin", "-i", video, "-vn", "-acodec", "copy", output}
	if err := t.run(ctx, t.binary, args, nil); err != nil {
		_ = os.Remove(output)
		return services.Wrap(services.ErrExternalTool, "mux", "extract audio", video, err)
	}
	return nil
}

// Mux combines the video stream of video with the audio stream of audio into
// MuxedPath(video). The inputs are left in place.
func (t *Tool) Mux(ctx context.Context, video, audio string) (string, error) {
	for _, p := range []string{video, audio} {
		if _, err := os.Stat(p); err != nil {
			return "", services.Wrap(services.ErrExternalTool, "mux", "inputs", p, err)
		}
	}
	output := MuxedPath(video)
	tmpPath := filepath.Join(filepath.Dir(output), ".mux-"+filepath.Base(output))
	args := []string{
		"-y", "-v", "error", "-nostdin",
		"-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		tmpPath,
	}
	if err := t.run(ctx, t.binary, args, nil); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrExternalTool, "mux", "audio", output, err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "mux", "audio", "ffmpeg did not produce output", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalize muxed video: %w", err)
	}
	t.logger.Info("audio muxed into video",
		logging.String(logging.FieldEventType, "mux_complete"),
		logging.String("output", output),
	)
	return output, nil
}

// MuxedPath strips the no-audio suffix from video's file name.
func MuxedPath(video string) string {
	ext := filepath.Ext(video)
	stem := strings.TrimSuffix(video, ext)
	if trimmed, ok := strings.CutSuffix(stem, NoAudioSuffix); ok {
		return trimmed + ext
	}
	return stem + "_audio" + ext
}

func rgbToRGBA(buf []byte, size image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for i, j := 0, 0; i < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
