package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"aniportrait/internal/catalog"
	"aniportrait/internal/config"
	"aniportrait/internal/face"
	"aniportrait/internal/logging"
	"aniportrait/internal/mesh"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
)

// Dependencies are the collaborators a Service drives. Catalog and Clock are
// optional.
type Dependencies struct {
	Extractor face.Extractor
	Features  FeatureExtractor
	Regressor mesh.Regressor
	Generator Generator
	Media     MediaTool
	Probe     Prober
	Weights   WeightResolver
	Catalog   *catalog.Store
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Service executes pose extraction and video generation requests.
type Service struct {
	cfg        *config.Config
	deps       Dependencies
	convention pose.Convention
	visualizer *face.Visualizer
	logger     *slog.Logger
	now        func() time.Time
}

// New validates deps and returns a Service bound to cfg.
func New(cfg *config.Config, deps Dependencies) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	missing := make([]string, 0, 7)
	if deps.Extractor == nil {
		missing = append(missing, "landmark extractor")
	}
	if deps.Features == nil {
		missing = append(missing, "feature extractor")
	}
	if deps.Regressor == nil {
		missing = append(missing, "mesh regressor")
	}
	if deps.Generator == nil {
		missing = append(missing, "generator")
	}
	if deps.Media == nil {
		missing = append(missing, "media tool")
	}
	if deps.Probe == nil {
		missing = append(missing, "prober")
	}
	if deps.Weights == nil {
		missing = append(missing, "weight resolver")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"missing "+strings.Join(missing, ", "), nil)
	}
	conv, err := pose.ParseConvention(cfg.Pose.EulerConvention)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "pose.euler_convention", err)
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:        cfg,
		deps:       deps,
		convention: conv,
		visualizer: face.NewVisualizer(),
		logger:     logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:        now,
	}, nil
}

// request holds per-request state shared by the stages.
type request struct {
	id      string
	ctx     context.Context
	logger  *slog.Logger
	base    *slog.Logger
	workDir string
	run     *catalog.Run
	release func()
	started time.Time
}

// begin acquires the request lock, creates a scratch directory, and records
// the run when run is non-nil.
func (s *Service) begin(ctx context.Context, mode string, run *catalog.Run) (*request, error) {
	id := uuid.NewString()
	ctx = services.WithMode(ctx, mode)
	ctx = services.WithRequestID(ctx, id)
	r := &request{
		id:      id,
		ctx:     ctx,
		base:    s.logger,
		logger:  logging.WithContext(ctx, s.logger),
		started: time.Now(),
	}

	release, err := acquireLock(ctx, s.cfg.Paths.WorkDir, r.logger)
	if err != nil {
		return nil, err
	}
	r.release = release

	workDir, err := os.MkdirTemp(s.cfg.Paths.WorkDir, "req-"+id[:8]+"-")
	if err != nil {
		release()
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	r.workDir = workDir

	if run != nil && s.deps.Catalog != nil {
		run.RequestID = id
		run.Mode = mode
		stored, err := s.deps.Catalog.BeginRun(ctx, *run)
		if err != nil {
			r.cleanup()
			return nil, fmt.Errorf("record run: %w", err)
		}
		r.run = stored
	}

	r.logger.Info("request started",
		logging.String(logging.FieldEventType, "request_start"),
		logging.String("scratch_dir", workDir),
	)
	return r, nil
}

// finish records the outcome and releases request resources.
func (s *Service) finish(r *request, output string, err error) {
	defer r.cleanup()
	if r.run != nil && s.deps.Catalog != nil {
		// The request context may already be cancelled; the outcome is still recorded.
		ctx := context.WithoutCancel(r.ctx)
		var recordErr error
		if err == nil {
			recordErr = s.deps.Catalog.CompleteRun(ctx, r.run.ID, output)
		} else {
			recordErr = s.deps.Catalog.FailRun(ctx, r.run.ID, services.FailureStatus(err), services.Kind(err), err.Error())
		}
		if recordErr != nil {
			r.logger.Warn("failed to record run outcome",
				logging.Error(recordErr),
				logging.String(logging.FieldEventType, "run_record_failed"),
				logging.String(logging.FieldErrorHint, "check catalog.db permissions in the output directory"),
			)
		}
	}
	if err != nil {
		logging.ErrorWithContext(r.logger, "request failed", "request_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.Duration("request_duration", time.Since(r.started)),
		)
		return
	}
	r.logger.Info("request completed",
		logging.String(logging.FieldEventType, "request_complete"),
		logging.String("output", output),
		logging.Duration("request_duration", time.Since(r.started)),
	)
}

func (r *request) cleanup() {
	if r.workDir != "" {
		if err := os.RemoveAll(r.workDir); err != nil {
			r.logger.Warn("failed to remove scratch directory", logging.Error(err), logging.String("path", r.workDir))
		}
	}
	if r.release != nil {
		r.release()
	}
}

// stage runs fn under a stage-tagged context and logs its duration.
func (r *request) stage(name string, fn func(ctx context.Context, logger *slog.Logger) error) error {
	ctx := services.WithStage(r.ctx, name)
	logger := logging.WithContext(ctx, r.base)
	start := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(ctx, logger); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}
