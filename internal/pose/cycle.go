package pose

import (
	"fmt"

	"aniportrait/internal/services"
)

// Cycle mirrors seq into a ping-pong loop and tiles it to exactly n samples.
// The mirrored half is reverse(seq) without its first and last samples, so
// the loop period is 2*len(seq)-2.
func Cycle(seq Sequence, n int) (Sequence, error) {
	if len(seq.Poses) < 2 {
		return Sequence{}, services.Wrap(services.ErrEmptySequence, stageName, "cycle",
			fmt.Sprintf("need at least 2 samples to mirror, got %d", len(seq.Poses)), nil)
	}
	if n < 1 {
		return Sequence{}, services.Wrap(services.ErrValidation, stageName, "cycle",
			fmt.Sprintf("required length must be at least 1, got %d", n), nil)
	}

	mirrored := Mirror(seq.Poses)
	out := make([]Vector, n)
	for i := range out {
		out[i] = mirrored[i%len(mirrored)]
	}
	return Sequence{Poses: out, FPS: seq.FPS}, nil
}

// Mirror returns poses followed by the interior of poses in reverse order.
func Mirror(poses []Vector) []Vector {
	mirrored := make([]Vector, 0, 2*len(poses))
	mirrored = append(mirrored, poses...)
	for i := len(poses) - 2; i > 0; i-- {
		mirrored = append(mirrored, poses[i])
	}
	return mirrored
}
