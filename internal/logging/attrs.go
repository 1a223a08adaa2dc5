package logging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aniportrait/internal/services"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// ErrorWithContext logs a failure with event_type and error_hint set. A
// missing hint is derived from the error attribute's marker.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	var cause error
	hasEvent, hasHint := false, false
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case "error":
			if err, ok := a.Value.Any().(error); ok {
				cause = err
			}
		}
	}
	if !hasEvent {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasHint {
		attrs = append(attrs, String(FieldErrorHint, ErrorHint(cause)))
	}
	logger.Error(msg, toArgs(attrs)...)
}

// ErrorHint returns the operator-facing next step for a request error.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return "check logs for details"
	case errors.Is(err, services.ErrInvalidPath):
		return "check the input path exists and has a supported extension"
	case errors.Is(err, services.ErrNoFaceDetected):
		return "use an image or video with a clearly visible face"
	case errors.Is(err, services.ErrEmptySequence):
		return "extract the pose template from a longer video"
	case errors.Is(err, services.ErrInterpolationRange):
		return "check pose.target_fps and the driving video frame rate"
	case errors.Is(err, services.ErrExternalTool):
		return "run `aniportrait doctor` to check ffmpeg and the model worker"
	case errors.Is(err, services.ErrConfiguration):
		return "run `aniportrait config validate`"
	case errors.Is(err, services.ErrNotFound):
		return "check models.root and the weights manifest"
	case errors.Is(err, services.ErrValidation):
		return "check the generation options against their allowed ranges"
	default:
		return "check logs for details"
	}
}

func toArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
