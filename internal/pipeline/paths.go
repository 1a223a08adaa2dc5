package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"aniportrait/internal/services"
)

// InputKind selects the accepted extensions for an input path.
type InputKind string

const (
	InputImage    InputKind = "image"
	InputAudio    InputKind = "audio"
	InputVideo    InputKind = "video"
	InputTemplate InputKind = "template"
)

var inputExtensions = map[InputKind][]string{
	InputImage:    {".jpg", ".jpeg", ".png", ".gif"},
	InputAudio:    {".wav", ".mp3"},
	InputVideo:    {".mp4", ".mov", ".avi", ".mkv", ".webm"},
	InputTemplate: {".npy"},
}

// Extensions returns the accepted extensions for kind.
func Extensions(kind InputKind) []string {
	return slices.Clone(inputExtensions[kind])
}

// ValidateInput checks that path names an existing regular file with an
// extension accepted for kind.
func ValidateInput(kind InputKind, path string) error {
	allowed, ok := inputExtensions[kind]
	if !ok {
		return services.Wrap(services.ErrValidation, "input", "validate", fmt.Sprintf("unknown input kind %q", kind), nil)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrInvalidPath, "input", "validate", fmt.Sprintf("%s path is empty", kind), nil)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(allowed, ext) {
		return services.Wrap(services.ErrInvalidPath, "input", "validate",
			fmt.Sprintf("%s %q: extension %q not in %s", kind, path, ext, strings.Join(allowed, ", ")), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrInvalidPath, "input", "validate", fmt.Sprintf("%s %q", kind, path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInvalidPath, "input", "validate", fmt.Sprintf("%s %q is a directory", kind, path), nil)
	}
	return nil
}
