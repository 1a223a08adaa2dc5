package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// gimbalEpsilon is how close |sin(middle angle)| may get to 1 before the
// first and third axes are treated as aligned.
const gimbalEpsilon = 1e-9

// Decompose splits a rigid transform into Euler angles (degrees) and its
// translation column.
func Decompose(m Transform, conv Convention) Vector {
	angles := anglesFromRotation(m, conv)
	return Vector{
		mgl64.RadToDeg(angles[0]),
		mgl64.RadToDeg(angles[1]),
		mgl64.RadToDeg(angles[2]),
		m.At(0, 3),
		m.At(1, 3),
		m.At(2, 3),
	}
}

// Compose builds the rigid transform described by v. It inverts Decompose
// outside of gimbal lock.
func Compose(v Vector, conv Convention) Transform {
	angles := v.Angles()
	rx := mgl64.HomogRotate3DX(mgl64.DegToRad(angles.X()))
	ry := mgl64.HomogRotate3DY(mgl64.DegToRad(angles.Y()))
	rz := mgl64.HomogRotate3DZ(mgl64.DegToRad(angles.Z()))

	var rot mgl64.Mat4
	if conv == ConventionExtrinsic {
		rot = rz.Mul4(ry).Mul4(rx)
	} else {
		rot = rx.Mul4(ry).Mul4(rz)
	}
	t := v.Translation()
	return mgl64.Translate3D(t.X(), t.Y(), t.Z()).Mul4(rot)
}

// anglesFromRotation returns radians (a, b, c) for the X, Y and Z rotations.
// In gimbal lock the Z angle is pinned to zero.
func anglesFromRotation(m Transform, conv Convention) [3]float64 {
	if conv == ConventionExtrinsic {
		// R = Rz(c)·Ry(b)·Rx(a); R20 = -sin(b)
		sb := clampUnit(-m.At(2, 0))
		b := math.Asin(sb)
		if 1-math.Abs(sb) < gimbalEpsilon {
			return [3]float64{math.Atan2(-m.At(1, 2), m.At(1, 1)), b, 0}
		}
		return [3]float64{
			math.Atan2(m.At(2, 1), m.At(2, 2)),
			b,
			math.Atan2(m.At(1, 0), m.At(0, 0)),
		}
	}

	// R = Rx(a)·Ry(b)·Rz(c); R02 = sin(b)
	sb := clampUnit(m.At(0, 2))
	b := math.Asin(sb)
	if 1-math.Abs(sb) < gimbalEpsilon {
		// With c = 0, R10 = sin(a)·sin(b).
		return [3]float64{math.Atan2(math.Copysign(1, sb)*m.At(1, 0), m.At(1, 1)), b, 0}
	}
	return [3]float64{
		math.Atan2(-m.At(1, 2), m.At(2, 2)),
		b,
		math.Atan2(-m.At(0, 1), m.At(0, 0)),
	}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
