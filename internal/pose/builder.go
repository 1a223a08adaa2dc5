package pose

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/interp"

	"aniportrait/internal/services"
)

const stageName = "pose"

// minDeterminant rejects rotation blocks that are numerically singular.
const minDeterminant = 1e-12

// Build converts per-frame transforms into a smoothed relative pose sequence
// sampled at targetFPS. A zero targetFPS keeps the source rate.
func Build(transforms []Transform, sourceFPS, targetFPS float64, opts Options) (Sequence, error) {
	if len(transforms) == 0 {
		return Sequence{}, services.Wrap(services.ErrEmptySequence, stageName, "build", "no transforms supplied", nil)
	}
	if sourceFPS <= 0 || math.IsNaN(sourceFPS) || math.IsInf(sourceFPS, 0) {
		return Sequence{}, services.Wrap(services.ErrValidation, stageName, "build",
			fmt.Sprintf("source fps must be positive, got %v", sourceFPS), nil)
	}
	if targetFPS < 0 {
		return Sequence{}, services.Wrap(services.ErrValidation, stageName, "build",
			fmt.Sprintf("target fps must not be negative, got %v", targetFPS), nil)
	}
	if targetFPS == 0 {
		targetFPS = sourceFPS
	}
	opts = opts.normalized()

	relative, err := Relative(transforms, opts.Convention)
	if err != nil {
		return Sequence{}, err
	}
	resampled, err := Resample(relative, sourceFPS, targetFPS)
	if err != nil {
		return Sequence{}, err
	}
	return Sequence{Poses: Smooth(resampled, opts.SmoothWindow), FPS: targetFPS}, nil
}

// Relative expresses every transform relative to transforms[0] and decomposes
// the result. Frame 0 is always the zero vector.
func Relative(transforms []Transform, conv Convention) ([]Vector, error) {
	if len(transforms) == 0 {
		return nil, services.Wrap(services.ErrEmptySequence, stageName, "relative", "no transforms supplied", nil)
	}
	for i, m := range transforms {
		if det := rotationDeterminant(m); math.Abs(det) < minDeterminant || math.IsNaN(det) {
			return nil, services.Wrap(services.ErrValidation, stageName, "relative",
				fmt.Sprintf("frame %d: 3x3 rotation block determinant %g", i, det), ErrDegenerateTransform)
		}
	}

	refInv := transforms[0].Inv()
	out := make([]Vector, len(transforms))
	for i, m := range transforms {
		if i == 0 {
			continue
		}
		out[i] = Decompose(refInv.Mul4(m), conv)
	}
	return out, nil
}

// Resample linearly interpolates poses, sampled at sourceFPS, onto a uniform
// axis at targetFPS covering the same duration. Both axes span [0, duration]
// inclusive; output times outside the input axis are rejected, never clamped.
func Resample(poses []Vector, sourceFPS, targetFPS float64) ([]Vector, error) {
	n := len(poses)
	if n == 0 {
		return nil, services.Wrap(services.ErrEmptySequence, stageName, "resample", "no samples supplied", nil)
	}
	if sourceFPS <= 0 || targetFPS <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "resample",
			fmt.Sprintf("rates must be positive (source %v, target %v)", sourceFPS, targetFPS), nil)
	}

	duration := float64(n) / sourceFPS
	m := max(1, int(math.Round(duration*targetFPS)))

	out := make([]Vector, m)
	if n == 1 {
		for i := range out {
			out[i] = poses[0]
		}
		return out, nil
	}

	inputAxis := linspace(0, duration, n)
	outputAxis := linspace(0, duration, m)
	lo, hi := inputAxis[0], inputAxis[n-1]
	for i, t := range outputAxis {
		if t < lo || t > hi {
			return nil, services.Wrap(services.ErrInterpolationRange, stageName, "resample",
				fmt.Sprintf("output sample %d at t=%g outside [%g, %g]", i, t, lo, hi), nil)
		}
	}

	channel := make([]float64, n)
	for c := 0; c < len(Vector{}); c++ {
		for i, p := range poses {
			channel[i] = p[c]
		}
		var fit interp.PiecewiseLinear
		if err := fit.Fit(inputAxis, channel); err != nil {
			return nil, services.Wrap(services.ErrInterpolationRange, stageName, "resample",
				fmt.Sprintf("fit channel %d over %d samples", c, n), err)
		}
		for i, t := range outputAxis {
			out[i][c] = fit.Predict(t)
		}
	}
	return out, nil
}

// Smooth applies a centered moving average of width window to each channel.
// Near the ends the window shrinks to the available samples. The output has
// the same length as the input for every window size.
func Smooth(poses []Vector, window int) []Vector {
	if window < 1 {
		window = 1
	}
	half := window / 2
	out := make([]Vector, len(poses))
	for i := range poses {
		start := max(0, i-half)
		end := min(len(poses), i+half+1)
		var sum Vector
		for _, p := range poses[start:end] {
			for c := range sum {
				sum[c] += p[c]
			}
		}
		count := float64(end - start)
		for c := range sum {
			out[i][c] = sum[c] / count
		}
	}
	return out
}

func rotationDeterminant(m mgl64.Mat4) float64 {
	return mgl64.Mat3{
		m.At(0, 0), m.At(1, 0), m.At(2, 0),
		m.At(0, 1), m.At(1, 1), m.At(2, 1),
		m.At(0, 2), m.At(1, 2), m.At(2, 2),
	}.Det()
}

func linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
