package pose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSmoothWindow is the moving-average window used when none is configured.
const DefaultSmoothWindow = 5

// ErrDegenerateTransform marks a transform whose rotation block cannot be inverted.
var ErrDegenerateTransform = errors.New("degenerate transform")

// Transform is a 4x4 rigid transform (rotation plus translation).
type Transform = mgl64.Mat4

// Vector is a relative pose: angle0..angle2 in degrees, then trans0..trans2.
type Vector [6]float64

// Angles returns the Euler angles in degrees.
func (v Vector) Angles() mgl64.Vec3 { return mgl64.Vec3{v[0], v[1], v[2]} }

// Translation returns the translation components.
func (v Vector) Translation() mgl64.Vec3 { return mgl64.Vec3{v[3], v[4], v[5]} }

// Sequence is an ordered series of relative poses sampled at FPS.
type Sequence struct {
	Poses []Vector
	FPS   float64
}

// Len returns the number of samples.
func (s Sequence) Len() int { return len(s.Poses) }

// Duration returns the covered time span in seconds.
func (s Sequence) Duration() float64 {
	if s.FPS <= 0 {
		return 0
	}
	return float64(len(s.Poses)) / s.FPS
}

// Convention selects how a rotation block maps to three Euler angles.
type Convention string

const (
	// ConventionIntrinsic rotates about X, then the new Y, then the new Z: R = Rx·Ry·Rz.
	ConventionIntrinsic Convention = "intrinsic"
	// ConventionExtrinsic rotates about the fixed X, Y, then Z axes: R = Rz·Ry·Rx.
	ConventionExtrinsic Convention = "extrinsic"
)

// ParseConvention resolves a configured convention name. Empty selects intrinsic.
func ParseConvention(value string) (Convention, error) {
	switch Convention(strings.ToLower(strings.TrimSpace(value))) {
	case "", ConventionIntrinsic:
		return ConventionIntrinsic, nil
	case ConventionExtrinsic:
		return ConventionExtrinsic, nil
	default:
		return "", fmt.Errorf("unsupported euler convention %q", value)
	}
}

// Options tunes Build.
type Options struct {
	Convention   Convention
	SmoothWindow int
}

func (o Options) normalized() Options {
	if o.Convention == "" {
		o.Convention = ConventionIntrinsic
	}
	if o.SmoothWindow == 0 {
		o.SmoothWindow = DefaultSmoothWindow
	}
	return o
}
