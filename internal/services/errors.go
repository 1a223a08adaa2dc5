package services

import (
	"errors"
	"fmt"
	"strings"

	"aniportrait/internal/catalog"
)

var (
	ErrInvalidPath        = errors.New("invalid path")
	ErrNoFaceDetected     = errors.New("no face detected")
	ErrEmptySequence      = errors.New("empty sequence")
	ErrInterpolationRange = errors.New("interpolation range error")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a request error to the run status recorded in the catalog.
// Input problems are rejections; everything else is a failure.
func FailureStatus(err error) catalog.Status {
	switch {
	case errors.Is(err, ErrInvalidPath),
		errors.Is(err, ErrNoFaceDetected),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound):
		return catalog.StatusRejected
	default:
		return catalog.StatusFailed
	}
}

// Kind returns a short machine-friendly label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPath):
		return "invalid_path"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face_detected"
	case errors.Is(err, ErrEmptySequence):
		return "empty_sequence"
	case errors.Is(err, ErrInterpolationRange):
		return "interpolation_range"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "request failure"
	}
	return strings.Join(parts, ": ")
}
