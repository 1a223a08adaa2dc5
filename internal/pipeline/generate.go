package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"aniportrait/internal/catalog"
	"aniportrait/internal/conditioning"
	"aniportrait/internal/config"
	"aniportrait/internal/face"
	"aniportrait/internal/logging"
	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
)

// DefaultAudioFPS is the output rate of audio-driven requests when unset.
const DefaultAudioFPS = 30

var errStopDecode = errors.New("frame limit reached")

// GeneratePose animates the reference image with the frames of a driving
// video. The output keeps the driving video's audio when it has any.
func (s *Service) GeneratePose(ctx context.Context, req PoseRequest) (out Output, err error) {
	if err := ValidateInput(InputImage, req.Reference); err != nil {
		return Output{}, err
	}
	if err := ValidateInput(InputVideo, req.PoseVideo); err != nil {
		return Output{}, err
	}
	if err := req.Options.Validate(); err != nil {
		return Output{}, services.Wrap(services.ErrValidation, "input", "options", "", err)
	}
	weights, err := s.deps.Weights.ResolveAll(models.VideoWeights...)
	if err != nil {
		return Output{}, err
	}

	r, err := s.begin(ctx, ModePose, runRecord(req.Reference, req.PoseVideo, req.Options, float64(req.Options.PoseFPS)))
	if err != nil {
		return Output{}, err
	}
	defer func() { s.finish(r, out.Path, err) }()
	out.RequestID = r.id

	ref, err := s.prepareReference(r, req.Reference, req.Options)
	if err != nil {
		return out, err
	}
	probe, err := s.probeVideo(r, req.PoseVideo)
	if err != nil {
		return out, err
	}
	fps := float64(req.Options.PoseFPS)
	if fps <= 0 {
		fps = probe.FrameRate()
	}

	var poseImages []image.Image
	err = r.stage("decode", func(ctx context.Context, logger *slog.Logger) error {
		limit := req.Options.Frames
		_, err := s.deps.Media.DecodeFrames(ctx, req.PoseVideo, ref.size, func(i int, frame *image.RGBA) error {
			if limit > 0 && i >= limit {
				return errStopDecode
			}
			poseImages = append(poseImages, frame)
			return nil
		})
		if err != nil && !errors.Is(err, errStopDecode) {
			return err
		}
		logger.Debug("pose frames decoded", logging.Int("frames", len(poseImages)))
		return nil
	})
	if err != nil {
		return out, err
	}

	var audioPath string
	if probe.HasAudio() {
		err = r.stage("audio", func(ctx context.Context, _ *slog.Logger) error {
			audioPath = filepath.Join(r.workDir, "driving_audio.aac")
			return s.deps.Media.ExtractAudio(ctx, req.PoseVideo, audioPath)
		})
		if err != nil {
			return out, err
		}
	} else {
		r.logger.Info("driving video has no audio; output will be silent",
			logging.String(logging.FieldEventType, "audio_missing"))
	}

	return s.render(r, ref, poseImages, req.Options, fps, audioPath,
		OutputName(req.Reference, req.PoseVideo, ref.size.Y, ref.size.X, req.Options.CFG, s.now()), weights)
}

// GenerateAudio animates the reference image from speech. Mesh motion comes
// from the audio model; head motion comes from the pose template, cycled to
// the audio length.
func (s *Service) GenerateAudio(ctx context.Context, req AudioRequest) (out Output, err error) {
	if err := ValidateInput(InputImage, req.Reference); err != nil {
		return Output{}, err
	}
	if err := ValidateInput(InputAudio, req.Audio); err != nil {
		return Output{}, err
	}
	if err := ValidateInput(InputTemplate, req.Template); err != nil {
		return Output{}, err
	}
	if err := req.Options.Validate(); err != nil {
		return Output{}, services.Wrap(services.ErrValidation, "input", "options", "", err)
	}
	weights, err := s.deps.Weights.ResolveAll(append(slices.Clone(models.VideoWeights), models.AudioWeights...)...)
	if err != nil {
		return Output{}, err
	}
	template, err := pose.LoadTemplate(req.Template, s.cfg.Pose.TargetFPS)
	if err != nil {
		return Output{}, err
	}

	r, err := s.begin(ctx, ModeAudio, runRecord(req.Reference, req.Audio, req.Options, audioFPS(req.Options)))
	if err != nil {
		return Output{}, err
	}
	defer func() { s.finish(r, out.Path, err) }()
	out.RequestID = r.id

	ref, err := s.prepareReference(r, req.Reference, req.Options)
	if err != nil {
		return out, err
	}
	fps := audioFPS(req.Options)

	var meshes []mesh.Mesh
	err = r.stage("audio2mesh", func(ctx context.Context, logger *slog.Logger) error {
		feature, err := s.deps.Features.ExtractFeatures(ctx, req.Audio, fps)
		if err != nil {
			return err
		}
		driver := mesh.NewDriver(s.deps.Regressor, s.deps.Weights, mesh.Mesh(ref.face.Landmarks3D))
		meshes, err = driver.Infer(ctx, feature, feature.SeqLen)
		if err != nil {
			return err
		}
		logger.Debug("mesh sequence predicted", logging.Int("frames", len(meshes)))
		return nil
	})
	if err != nil {
		return out, err
	}

	var poseImages []image.Image
	err = r.stage("reproject", func(ctx context.Context, logger *slog.Logger) error {
		cycled, err := pose.Cycle(template, len(meshes))
		if err != nil {
			return err
		}
		projector := mesh.Projector{Convention: s.convention}
		landmarks, err := projector.Project(meshes, ref.face.Transform, cycled.Poses, ref.size)
		if err != nil {
			return err
		}
		poseImages = make([]image.Image, len(landmarks))
		for i, lmks := range landmarks {
			if err := ctx.Err(); err != nil {
				return err
			}
			poseImages[i] = s.visualizer.Draw(ref.size, lmks, false)
		}
		logger.Debug("pose images rendered", logging.Int("frames", len(poseImages)))
		return nil
	})
	if err != nil {
		return out, err
	}

	return s.render(r, ref, poseImages, req.Options, fps, req.Audio,
		OutputName(req.Reference, req.Audio, ref.size.Y, ref.size.X, req.Options.CFG, s.now()), weights)
}

// render assembles the conditioning, runs the generator, encodes the frames,
// and muxes audioPath in when it is set. The silent intermediate never
// survives the call.
func (s *Service) render(r *request, ref *referenceFace, poseImages []image.Image, opts config.Generation,
	fps float64, audioPath, name string, weights map[string]models.Handle) (Output, error) {
	out := Output{RequestID: r.id, FPS: fps, Width: ref.size.X, Height: ref.size.Y}

	var cond conditioning.Result
	var framePaths []string
	err := r.stage("assemble", func(ctx context.Context, logger *slog.Logger) error {
		var err error
		cond, err = conditioning.Assemble(ctx, poseImages, ref.image, ref.size, opts.Frames)
		if err != nil {
			return err
		}
		dir := filepath.Join(r.workDir, "pose")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pose frame directory: %w", err)
		}
		framePaths = make([]string, len(cond.Frames))
		for i, frame := range cond.Frames {
			framePaths[i] = filepath.Join(dir, fmt.Sprintf("pose_%05d.png", i))
			if err := face.SavePNG(framePaths[i], frame); err != nil {
				return err
			}
		}
		logger.Debug("conditioning assembled",
			logging.Int("frames", cond.FrameCount()),
			logging.Any("pose_shape", cond.Pose.Shape),
		)
		return nil
	})
	if err != nil {
		return out, err
	}

	var generated GenerateResult
	err = r.stage("generate", func(ctx context.Context, logger *slog.Logger) error {
		frameDir := filepath.Join(r.workDir, "frames")
		if err := os.MkdirAll(frameDir, 0o755); err != nil {
			return fmt.Errorf("create frame directory: %w", err)
		}
		var err error
		generated, err = s.deps.Generator.Generate(ctx, GenerateRequest{
			ReferenceImage: ref.imagePath,
			ReferencePose:  ref.posePath,
			PoseFrames:     framePaths,
			Conditioning:   cond,
			Width:          ref.size.X,
			Height:         ref.size.Y,
			Frames:         cond.FrameCount(),
			Steps:          opts.Steps,
			CFG:            opts.CFG,
			Seed:           opts.Seed,
			WeightDType:    opts.WeightDType,
			Weights:        weights,
			OutputDir:      frameDir,
		})
		if err != nil {
			return err
		}
		logger.Info("video frames generated",
			logging.String(logging.FieldEventType, "frames_generated"),
			logging.Int("frames", generated.FrameCount),
		)
		return nil
	})
	if err != nil {
		return out, err
	}

	final, silent := outputPaths(s.cfg.Paths.OutputDir, name)
	defer removeIfExists(r.logger, silent)
	err = r.stage("encode", func(ctx context.Context, _ *slog.Logger) error {
		return s.deps.Media.EncodeFrames(ctx, generated.FramePattern, fps, silent)
	})
	if err != nil {
		return out, err
	}

	err = r.stage("mux", func(ctx context.Context, _ *slog.Logger) error {
		if audioPath == "" {
			if err := os.Rename(silent, final); err != nil {
				return fmt.Errorf("finalize video: %w", err)
			}
			return nil
		}
		muxed, err := s.deps.Media.Mux(ctx, silent, audioPath)
		if err != nil {
			return err
		}
		if muxed != final {
			if err := os.Rename(muxed, final); err != nil {
				_ = os.Remove(muxed)
				return fmt.Errorf("finalize video: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	out.Path = final
	out.Frames = generated.FrameCount
	return out, nil
}

func audioFPS(opts config.Generation) float64 {
	if opts.AudioFPS > 0 {
		return float64(opts.AudioFPS)
	}
	return DefaultAudioFPS
}

func runRecord(reference, driver string, opts config.Generation, fps float64) *catalog.Run {
	return &catalog.Run{
		ReferencePath: reference,
		DriverPath:    driver,
		Width:         opts.Width,
		Height:        opts.Height,
		Frames:        opts.Frames,
		FPS:           fps,
		Seed:          opts.Seed,
		CFG:           opts.CFG,
		Steps:         opts.Steps,
	}
}

func removeIfExists(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove intermediate file", logging.Error(err), logging.String("path", path))
	}
}
