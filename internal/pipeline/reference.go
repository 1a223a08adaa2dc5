package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"aniportrait/internal/conditioning"
	"aniportrait/internal/config"
	"aniportrait/internal/face"
	"aniportrait/internal/logging"
)

// referenceFace is the prepared reference image.
type referenceFace struct {
	image     *image.RGBA
	size      image.Point
	face      face.Result
	imagePath string
	posePath  string
}

// targetSize resolves the output size. Zero dimensions take the reference's.
func targetSize(opts config.Generation, bounds image.Rectangle) image.Point {
	size := image.Pt(opts.Width, opts.Height)
	if size.X <= 0 {
		size.X = bounds.Dx()
	}
	if size.Y <= 0 {
		size.Y = bounds.Dy()
	}
	return size
}

// prepareReference resizes the reference image, locates its face, and renders
// the reference pose from the normalized landmarks. Both images are written
// to the scratch directory for the generator.
func (s *Service) prepareReference(r *request, path string, opts config.Generation) (*referenceFace, error) {
	ref := &referenceFace{}
	err := r.stage("reference", func(ctx context.Context, logger *slog.Logger) error {
		img, err := face.LoadImage(path)
		if err != nil {
			return err
		}
		ref.size = targetSize(opts, img.Bounds())
		ref.image = conditioning.Resize(img, ref.size)

		res, err := s.deps.Extractor.Extract(ctx, ref.image)
		if err != nil {
			return fmt.Errorf("reference image %s: %w", path, err)
		}
		ref.face = res

		ref.imagePath = filepath.Join(r.workDir, "reference.png")
		if err := face.SavePNG(ref.imagePath, ref.image); err != nil {
			return err
		}
		ref.posePath = filepath.Join(r.workDir, "reference_pose.png")
		if err := face.SavePNG(ref.posePath, s.visualizer.Draw(ref.size, res.Landmarks, true)); err != nil {
			return err
		}
		logger.Debug("reference prepared",
			logging.Int("width", ref.size.X),
			logging.Int("height", ref.size.Y),
			logging.Int("landmarks", len(res.Landmarks)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}
