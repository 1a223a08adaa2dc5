package face

import (
	"context"
	"image"

	"github.com/go-gl/mathgl/mgl64"

	"aniportrait/internal/services"
)

// ErrNoFace is the marker carried by extraction failures when the image holds
// no detectable face.
var ErrNoFace = services.ErrNoFaceDetected

// Point is a 2D landmark position.
type Point struct {
	X float64
	Y float64
}

// Landmarks2D is an ordered landmark set. Index i is always mesh vertex i.
type Landmarks2D []Point

// Result is the output of landmark extraction for one image.
type Result struct {
	// Landmarks are normalized to [0, 1] image coordinates.
	Landmarks Landmarks2D
	// Landmarks3D are the canonical-space mesh vertices.
	Landmarks3D []mgl64.Vec3
	// Transform is the head pose relative to the canonical face.
	Transform mgl64.Mat4
}

// Extractor finds facial landmarks and the head pose in an image.
// Implementations return an error wrapping ErrNoFace when nothing is found.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (Result, error)
}
