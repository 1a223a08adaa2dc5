package conditioning

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"aniportrait/internal/services"
)

const stageName = "conditioning"

// Channels is the number of color channels in every tensor.
const Channels = 3

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Len returns the element count implied by Shape.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Result holds everything the generator consumes for one request.
type Result struct {
	// Frames are the resized pose images, one per output frame.
	Frames []*image.RGBA
	// Pose is the stacked pose tensor, shape (C, F, H, W).
	Pose Tensor
	// Reference is the reference image repeated along F, shape (C, F, H, W).
	Reference Tensor
}

// FrameCount returns the number of conditioning frames.
func (r Result) FrameCount() int { return len(r.Frames) }

// Assemble resizes poseImages and reference to size, truncating the pose
// frames to frameCount when it is positive.
func Assemble(ctx context.Context, poseImages []image.Image, reference image.Image, size image.Point, frameCount int) (Result, error) {
	if len(poseImages) == 0 {
		return Result{}, services.Wrap(services.ErrEmptySequence, stageName, "assemble", "no pose images", nil)
	}
	if reference == nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "assemble", "reference image is nil", nil)
	}
	if size.X <= 0 || size.Y <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "assemble",
			fmt.Sprintf("target size %dx%d", size.X, size.Y), nil)
	}
	if frameCount > 0 && frameCount < len(poseImages) {
		poseImages = poseImages[:frameCount]
	}

	frames := make([]*image.RGBA, len(poseImages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range poseImages {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if src == nil {
				return services.Wrap(services.ErrValidation, stageName, "assemble", fmt.Sprintf("pose frame %d is nil", i), nil)
			}
			frames[i] = Resize(src, size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	count := len(frames)
	plane := size.X * size.Y
	poseTensor := Tensor{Shape: []int{Channels, count, size.Y, size.X}, Data: make([]float32, Channels*count*plane)}
	for f, frame := range frames {
		writeCHW(poseTensor.Data, frame, f, count)
	}

	refFrame := Resize(reference, size)
	refCHW := make([]float32, Channels*plane)
	writeCHW(refCHW, refFrame, 0, 1)
	refTensor := Tensor{Shape: []int{Channels, count, size.Y, size.X}, Data: make([]float32, Channels*count*plane)}
	for c := 0; c < Channels; c++ {
		src := refCHW[c*plane : (c+1)*plane]
		for f := 0; f < count; f++ {
			copy(refTensor.Data[(c*count+f)*plane:], src)
		}
	}

	return Result{Frames: frames, Pose: poseTensor, Reference: refTensor}, nil
}

// Resize scales src to size with bilinear filtering.
func Resize(src image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// writeCHW stores img as frame f of a (C, frames, H, W) tensor with values in [0, 1].
func writeCHW(dst []float32, img *image.RGBA, f, frames int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			idx := y*w + x
			for c := 0; c < Channels; c++ {
				dst[(c*frames+f)*plane+idx] = float32(px[c]) / 255
			}
		}
	}
}
