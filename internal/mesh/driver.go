package mesh

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/models"
	"aniportrait/internal/services"
)

const stageName = "audio2mesh"

// Mesh is one frame of face vertices.
type Mesh []mgl64.Vec3

// Feature is a pre-extracted audio feature matrix, one row per feature step.
type Feature struct {
	Values *mat.Dense
	// SeqLen is the number of video frames the audio covers.
	SeqLen int
}

// Regressor predicts per-frame vertex offsets as a [seqLen, vertices*3]
// matrix laid out x0 y0 z0 x1 y1 z1 ...
type Regressor interface {
	Predict(ctx context.Context, weights models.Handle, feature Feature, seqLen int) (*mat.Dense, error)
}

// Resolver resolves named weights; *models.Registry satisfies it.
type Resolver interface {
	Resolve(name string) (models.Handle, error)
}

// Driver adds predicted offsets to a base mesh.
type Driver struct {
	regressor Regressor
	weights   Resolver
	base      Mesh
}

// NewDriver returns a driver anchored on base, usually the reference image's
// 3D landmarks.
func NewDriver(regressor Regressor, weights Resolver, base Mesh) *Driver {
	return &Driver{regressor: regressor, weights: weights, base: base}
}

// Infer predicts seqLen meshes for feature.
func (d *Driver) Infer(ctx context.Context, feature Feature, seqLen int) ([]Mesh, error) {
	if seqLen < 1 {
		return nil, services.Wrap(services.ErrValidation, stageName, "infer",
			fmt.Sprintf("sequence length must be at least 1, got %d", seqLen), nil)
	}
	if len(d.base) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "infer", "base mesh is empty", nil)
	}
	if feature.Values == nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "infer", "audio feature is empty", nil)
	}
	handle, err := d.weights.Resolve(models.Audio2Mesh)
	if err != nil {
		return nil, err
	}

	deltas, err := d.regressor.Predict(ctx, handle, feature, seqLen)
	if err != nil {
		return nil, fmt.Errorf("%s: predict: %w", stageName, err)
	}
	rows, cols := deltas.Dims()
	if rows != seqLen || cols != len(d.base)*3 {
		return nil, services.Wrap(services.ErrValidation, stageName, "infer",
			fmt.Sprintf("prediction shape [%d, %d], want [%d, %d]", rows, cols, seqLen, len(d.base)*3), nil)
	}

	meshes := make([]Mesh, rows)
	for t := range meshes {
		row := deltas.RawRowView(t)
		frame := make(Mesh, len(d.base))
		for v, base := range d.base {
			frame[v] = base.Add(mgl64.Vec3{row[3*v], row[3*v+1], row[3*v+2]})
		}
		meshes[t] = frame
	}
	return meshes, nil
}
