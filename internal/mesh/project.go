package mesh

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl64"

	"aniportrait/internal/face"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
)

// Reference camera used to render landmark images.
const (
	FieldOfViewDegrees = 63
	NearPlane          = 1
	FarPlane           = 10000
)

// Projector maps meshes to pixel-space landmarks.
type Projector struct {
	Convention pose.Convention
}

// Project uses the default intrinsic Euler convention.
func Project(meshes []Mesh, reference pose.Transform, poses []pose.Vector, size image.Point) ([]face.Landmarks2D, error) {
	return Projector{}.Project(meshes, reference, poses, size)
}

// Camera returns the perspective matrix for a width x height image with the
// x axis mirrored.
func Camera(size image.Point) mgl64.Mat4 {
	aspect := float64(size.X) / float64(size.Y)
	persp := mgl64.Perspective(mgl64.DegToRad(FieldOfViewDegrees), aspect, NearPlane, FarPlane)
	return mgl64.Scale3D(-1, 1, 1).Mul4(persp)
}

// Project computes P · reference · compose(poses[i]) · v for every vertex of
// meshes[i] and converts the normalized device coordinates to pixels.
func (p Projector) Project(meshes []Mesh, reference pose.Transform, poses []pose.Vector, size image.Point) ([]face.Landmarks2D, error) {
	if len(meshes) != len(poses) {
		return nil, services.Wrap(services.ErrValidation, "reproject", "project",
			fmt.Sprintf("%d meshes but %d poses", len(meshes), len(poses)), nil)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, services.Wrap(services.ErrValidation, "reproject", "project",
			fmt.Sprintf("image size %dx%d", size.X, size.Y), nil)
	}
	conv := p.Convention
	if conv == "" {
		conv = pose.ConventionIntrinsic
	}

	camera := Camera(size)
	width, height := float64(size.X), float64(size.Y)
	out := make([]face.Landmarks2D, len(meshes))
	for i, frame := range meshes {
		if i > 0 && len(frame) != len(meshes[0]) {
			return nil, services.Wrap(services.ErrValidation, "reproject", "project",
				fmt.Sprintf("frame %d has %d vertices, frame 0 has %d", i, len(frame), len(meshes[0])), nil)
		}
		mvp := camera.Mul4(reference.Mul4(pose.Compose(poses[i], conv)))
		points := make(face.Landmarks2D, len(frame))
		for v, vertex := range frame {
			clip := mvp.Mul4x1(vertex.Vec4(1))
			ndcX, ndcY := clip.X()/clip.W(), clip.Y()/clip.W()
			points[v] = face.Point{
				X: (ndcX + 1) * 0.5 * width,
				Y: (ndcY + 1) * 0.5 * height,
			}
		}
		out[i] = points
	}
	return out, nil
}
