package pose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/services"
)

// TemplateExtension is the file extension of persisted pose templates.
const TemplateExtension = ".npy"

// TemplateName returns the file name used for a template extracted at t.
func TemplateName(t time.Time) string {
	return t.Format("20060102150405") + "_pose" + TemplateExtension
}

// Matrix returns the sequence as an [N, 6] dense matrix.
func (s Sequence) Matrix() *mat.Dense {
	cols := len(Vector{})
	data := make([]float64, 0, len(s.Poses)*cols)
	for _, p := range s.Poses {
		data = append(data, p[:]...)
	}
	return mat.NewDense(len(s.Poses), cols, data)
}

// FromMatrix builds a sequence from an [N, 6] matrix.
func FromMatrix(m mat.Matrix, fps float64) (Sequence, error) {
	rows, cols := m.Dims()
	if cols != len(Vector{}) {
		return Sequence{}, services.Wrap(services.ErrValidation, stageName, "template",
			fmt.Sprintf("expected [N, 6] array, got [%d, %d]", rows, cols), nil)
	}
	poses := make([]Vector, rows)
	for r := range poses {
		for c := 0; c < cols; c++ {
			poses[r][c] = m.At(r, c)
		}
	}
	return Sequence{Poses: poses, FPS: fps}, nil
}

// SaveTemplate writes seq as a float64 [N, 6] .npy array. The file appears
// atomically at path.
func SaveTemplate(path string, seq Sequence) error {
	if len(seq.Poses) == 0 {
		return services.Wrap(services.ErrEmptySequence, stageName, "save template", path, nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pose-*.npy")
	if err != nil {
		return fmt.Errorf("create temp template: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := npyio.Write(tmp, seq.Matrix()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode template %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp template: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalize template %s: %w", path, err)
	}
	return nil
}

// LoadTemplate reads an [N, 6] .npy pose template. Templates carry no rate,
// so the caller supplies the fps they were extracted at.
func LoadTemplate(path string, fps float64) (Sequence, error) {
	if !strings.EqualFold(filepath.Ext(path), TemplateExtension) {
		return Sequence{}, services.Wrap(services.ErrInvalidPath, stageName, "load template",
			fmt.Sprintf("%s: expected %s file", path, TemplateExtension), nil)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Sequence{}, services.Wrap(services.ErrInvalidPath, stageName, "load template", path, err)
		}
		return Sequence{}, fmt.Errorf("open template %s: %w", path, err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return Sequence{}, services.Wrap(services.ErrValidation, stageName, "load template",
			fmt.Sprintf("decode %s", path), err)
	}
	seq, err := FromMatrix(&m, fps)
	if err != nil {
		return Sequence{}, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}
