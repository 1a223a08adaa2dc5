package mesh

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/models"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
)

type stubResolver struct{ err error }

func (s stubResolver) Resolve(name string) (models.Handle, error) {
	if s.err != nil {
		return models.Handle{}, s.err
	}
	return models.Handle{Name: name, Path: "/weights/" + name}, nil
}

type stubRegressor struct {
	rows, cols int
	value      float64
	gotWeights models.Handle
}

func (s *stubRegressor) Predict(_ context.Context, weights models.Handle, _ Feature, _ int) (*mat.Dense, error) {
	s.gotWeights = weights
	data := make([]float64, s.rows*s.cols)
	for i := range data {
		data[i] = s.value * float64(i/s.cols+1)
	}
	return mat.NewDense(s.rows, s.cols, data), nil
}

func testFeature() Feature {
	return Feature{Values: mat.NewDense(4, 2, make([]float64, 8)), SeqLen: 3}
}

func TestDriverAddsDeltasToBase(t *testing.T) {
	base := Mesh{{1, 2, 3}, {4, 5, 6}}
	reg := &stubRegressor{rows: 3, cols: 6, value: 0.5}
	driver := NewDriver(reg, stubResolver{}, base)

	meshes, err := driver.Infer(context.Background(), testFeature(), 3)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("len = %d, want 3", len(meshes))
	}
	if reg.gotWeights.Name != models.Audio2Mesh {
		t.Fatalf("regressor got weights %q", reg.gotWeights.Name)
	}
	// frame 2 adds 1.5 to every coordinate
	want := Mesh{{2.5, 3.5, 4.5}, {5.5, 6.5, 7.5}}
	for v := range want {
		if !meshes[2][v].ApproxEqual(want[v]) {
			t.Fatalf("vertex %d = %v, want %v", v, meshes[2][v], want[v])
		}
	}
}

func TestDriverRejectsBadShapes(t *testing.T) {
	base := Mesh{{0, 0, 0}}
	tests := []struct {
		name   string
		reg    *stubRegressor
		seqLen int
	}{
		{"zero length", &stubRegressor{rows: 1, cols: 3}, 0},
		{"row mismatch", &stubRegressor{rows: 2, cols: 3}, 3},
		{"column mismatch", &stubRegressor{rows: 3, cols: 6}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDriver(tt.reg, stubResolver{}, base).Infer(context.Background(), testFeature(), tt.seqLen)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDriverPropagatesMissingWeights(t *testing.T) {
	missing := services.Wrap(services.ErrNotFound, "models", "resolve", "audio2mesh", nil)
	driver := NewDriver(&stubRegressor{rows: 1, cols: 3}, stubResolver{err: missing}, Mesh{{0, 0, 0}})
	if _, err := driver.Infer(context.Background(), testFeature(), 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectCentersOpticalAxis(t *testing.T) {
	meshes := []Mesh{{{0, 0, -50}}}
	out, err := Project(meshes, mgl64.Ident4(), []pose.Vector{{}}, image.Pt(640, 480))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	got := out[0][0]
	if math.Abs(got.X-320) > 1e-9 || math.Abs(got.Y-240) > 1e-9 {
		t.Fatalf("center projected to %+v", got)
	}
}

func TestProjectMirrorsXAxis(t *testing.T) {
	meshes := []Mesh{{{5, 5, -50}}}
	out, err := Project(meshes, mgl64.Ident4(), []pose.Vector{{}}, image.Pt(512, 512))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	got := out[0][0]
	if got.X >= 256 {
		t.Fatalf("expected mirrored x left of center, got %v", got.X)
	}
	if got.Y <= 256 {
		t.Fatalf("expected y below center in pixel rows, got %v", got.Y)
	}
}

func TestProjectAppliesPoseTranslation(t *testing.T) {
	meshes := []Mesh{{{0, 0, -50}}, {{0, 0, -50}}}
	poses := []pose.Vector{{}, {0, 0, 0, 0, 10, 0}}
	out, err := Project(meshes, mgl64.Ident4(), poses, image.Pt(512, 512))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out[1][0].Y <= out[0][0].Y {
		t.Fatalf("translation along +y should move the point down the image: %v vs %v", out[1][0], out[0][0])
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	meshes := []Mesh{{{1, 2, -40}, {-3, 1, -45}}, {{0.5, -1, -42}, {2, 2, -38}}}
	poses := []pose.Vector{{1, 2, 3, 0.1, 0.2, 0.3}, {-4, 5, -6, 1, 0, -1}}
	ref := pose.Compose(pose.Vector{5, -3, 2, 0, 0, -5}, pose.ConventionIntrinsic)

	first, err := Project(meshes, ref, poses, image.Pt(320, 240))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Project(meshes, ref, poses, image.Pt(320, 240))
		if err != nil {
			t.Fatalf("Project: %v", err)
		}
		for i := range first {
			for v := range first[i] {
				if first[i][v] != again[i][v] {
					t.Fatalf("frame %d vertex %d changed: %v vs %v", i, v, first[i][v], again[i][v])
				}
			}
		}
	}
}

func TestProjectValidatesInputs(t *testing.T) {
	tests := []struct {
		name   string
		meshes []Mesh
		poses  []pose.Vector
		size   image.Point
	}{
		{"length mismatch", []Mesh{{{0, 0, -1}}}, nil, image.Pt(10, 10)},
		{"zero size", []Mesh{{{0, 0, -1}}}, []pose.Vector{{}}, image.Pt(0, 10)},
		{"vertex count drift", []Mesh{{{0, 0, -1}}, {}}, []pose.Vector{{}, {}}, image.Pt(10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Project(tt.meshes, mgl64.Ident4(), tt.poses, tt.size); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
