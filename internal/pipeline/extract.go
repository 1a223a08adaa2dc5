package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"aniportrait/internal/catalog"
	"aniportrait/internal/logging"
	"aniportrait/internal/media/ffprobe"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
)

// ExtractPose builds a pose template from every frame of a driving video and
// writes it to the output directory. A frame without a face fails the request.
func (s *Service) ExtractPose(ctx context.Context, req ExtractRequest) (result ExtractResult, err error) {
	if err := ValidateInput(InputVideo, req.Video); err != nil {
		return ExtractResult{}, err
	}
	r, err := s.begin(ctx, ModeExtract, nil)
	if err != nil {
		return ExtractResult{}, err
	}
	defer func() { s.finish(r, result.TemplatePath, err) }()
	result.RequestID = r.id

	probe, err := s.probeVideo(r, req.Video)
	if err != nil {
		return result, err
	}
	stream, _ := probe.VideoStream()
	result.SourceFPS = probe.FrameRate()

	var transforms []pose.Transform
	err = r.stage("landmarks", func(ctx context.Context, logger *slog.Logger) error {
		total := probe.FrameCount()
		sampler := logging.NewProgressSampler(10)
		n, err := s.deps.Media.DecodeFrames(ctx, req.Video, image.Pt(stream.Width, stream.Height), func(i int, frame *image.RGBA) error {
			res, err := s.deps.Extractor.Extract(ctx, frame)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			transforms = append(transforms, res.Transform)
			if sampler.ShouldLog(i+1, total) {
				logger.Info("landmark progress",
					logging.String(logging.FieldEventType, "landmark_progress"),
					logging.Int("frame", i+1),
					logging.Int("total", total),
				)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result.SourceFrames = n
		return nil
	})
	if err != nil {
		return result, err
	}

	var seq pose.Sequence
	err = r.stage("build", func(context.Context, *slog.Logger) error {
		built, err := pose.Build(transforms, result.SourceFPS, s.cfg.Pose.TargetFPS, pose.Options{
			Convention:   s.convention,
			SmoothWindow: s.cfg.Pose.SmoothWindow,
		})
		seq = built
		return err
	})
	if err != nil {
		return result, err
	}

	err = r.stage("save", func(ctx context.Context, logger *slog.Logger) error {
		path := filepath.Join(s.cfg.Paths.OutputDir, pose.TemplateName(s.now()))
		if err := pose.SaveTemplate(path, seq); err != nil {
			return err
		}
		result.TemplatePath = path
		result.Frames = seq.Len()
		result.FPS = seq.FPS
		if s.deps.Catalog != nil {
			if _, err := s.deps.Catalog.AddTemplate(ctx, catalog.Template{
				Path:        path,
				SourceVideo: req.Video,
				Frames:      seq.Len(),
				FPS:         seq.FPS,
			}); err != nil {
				logger.Warn("failed to record template", logging.Error(err))
			}
		}
		logger.Info("pose template written",
			logging.String(logging.FieldEventType, "template_written"),
			logging.String("path", path),
			logging.Int("frames", seq.Len()),
		)
		return nil
	})
	return result, err
}

// probeVideo inspects a driving video and requires a usable video stream.
func (s *Service) probeVideo(r *request, path string) (ffprobe.Result, error) {
	var probe ffprobe.Result
	err := r.stage("probe", func(ctx context.Context, logger *slog.Logger) error {
		res, err := s.deps.Probe(ctx, path)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "probe", "inspect", path, err)
		}
		stream, ok := res.VideoStream()
		if !ok || stream.Width <= 0 || stream.Height <= 0 {
			return services.Wrap(services.ErrValidation, "probe", "inspect", path+": no video stream", nil)
		}
		if res.FrameRate() <= 0 {
			return services.Wrap(services.ErrValidation, "probe", "inspect", path+": unknown frame rate", nil)
		}
		logger.Debug("video inspected",
			logging.Int("width", stream.Width),
			logging.Int("height", stream.Height),
			logging.Float64("fps", res.FrameRate()),
			logging.Int("frames", res.FrameCount()),
			logging.Bool("has_audio", res.HasAudio()),
		)
		probe = res
		return nil
	})
	return probe, err
}
