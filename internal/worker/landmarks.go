package worker

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"aniportrait/internal/face"
	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
	"aniportrait/internal/services"
)

type landmarksParams struct {
	Image   string `json:"image"`
	Weights string `json:"weights"`
}

type landmarksResult struct {
	Found    bool         `json:"found"`
	Lmks     [][]float64  `json:"lmks"`
	Lmks3D   [][3]float64 `json:"lmks3d"`
	TransMat [][]float64  `json:"trans_mat"`
}

// LandmarkExtractor implements face.Extractor on top of the worker.
type LandmarkExtractor struct {
	caller  Caller
	weights mesh.Resolver
	scratch string
}

// NewLandmarkExtractor returns an extractor that stages images in scratch.
func NewLandmarkExtractor(caller Caller, weights mesh.Resolver, scratch string) *LandmarkExtractor {
	return &LandmarkExtractor{caller: caller, weights: weights, scratch: scratch}
}

// Extract sends img to the worker's landmark model.
func (e *LandmarkExtractor) Extract(ctx context.Context, img image.Image) (face.Result, error) {
	handle, err := e.weights.Resolve(models.FaceLandmarker)
	if err != nil {
		return face.Result{}, err
	}
	tmp, err := os.CreateTemp(e.scratch, "lmk-*.png")
	if err != nil {
		return face.Result{}, fmt.Errorf("stage landmark image: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()
	if err := face.SavePNG(path, img); err != nil {
		return face.Result{}, err
	}

	var res landmarksResult
	if err := e.caller.Call(ctx, "landmarks", landmarksParams{Image: path, Weights: handle.Path}, &res); err != nil {
		return face.Result{}, err
	}
	if !res.Found {
		return face.Result{}, services.Wrap(face.ErrNoFace, "landmarks", "extract", "", nil)
	}
	return decodeLandmarks(res)
}

func decodeLandmarks(res landmarksResult) (face.Result, error) {
	if len(res.TransMat) != 4 {
		return face.Result{}, services.Wrap(services.ErrExternalTool, "landmarks", "decode",
			fmt.Sprintf("trans_mat has %d rows, want 4", len(res.TransMat)), nil)
	}
	var m mgl64.Mat4
	for r, row := range res.TransMat {
		if len(row) != 4 {
			return face.Result{}, services.Wrap(services.ErrExternalTool, "landmarks", "decode",
				fmt.Sprintf("trans_mat row %d has %d columns, want 4", r, len(row)), nil)
		}
		for c, v := range row {
			m.Set(r, c, v)
		}
	}

	lmks := make(face.Landmarks2D, len(res.Lmks))
	for i, p := range res.Lmks {
		if len(p) < 2 {
			return face.Result{}, services.Wrap(services.ErrExternalTool, "landmarks", "decode",
				fmt.Sprintf("landmark %d has %d coordinates", i, len(p)), nil)
		}
		lmks[i] = face.Point{X: p[0], Y: p[1]}
	}
	lmks3d := make([]mgl64.Vec3, len(res.Lmks3D))
	for i, p := range res.Lmks3D {
		lmks3d[i] = mgl64.Vec3(p)
	}
	return face.Result{Landmarks: lmks, Landmarks3D: lmks3d, Transform: m}, nil
}
