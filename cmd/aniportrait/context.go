package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"aniportrait/internal/catalog"
	"aniportrait/internal/config"
	"aniportrait/internal/logging"
	"aniportrait/internal/media/ffmpeg"
	"aniportrait/internal/media/ffprobe"
	"aniportrait/internal/models"
	"aniportrait/internal/pipeline"
	"aniportrait/internal/worker"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	weightsOnce sync.Once
	weights     *models.Registry
	weightsErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ensureWeights() (*models.Registry, error) {
	c.weightsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.weightsErr = err
			return
		}
		c.weights, c.weightsErr = models.FromConfig(cfg)
	})
	return c.weights, c.weightsErr
}

func (c *commandContext) openCatalog(ctx context.Context) (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(ctx, filepath.Join(cfg.Paths.OutputDir, catalog.DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

// session owns the long-lived resources behind one pipeline.Service.
type session struct {
	service *pipeline.Service
	closers []func() error
}

func (s *session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newSession starts the model worker and wires the pipeline around it.
func (c *commandContext) newSession(ctx context.Context) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	weights, err := c.ensureWeights()
	if err != nil {
		return nil, err
	}

	s := &session{}
	store, err := c.openCatalog(ctx)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)

	proc, err := worker.Start(ctx, cfg.WorkerArgv(), logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, proc.Close)

	ffprobeBinary := cfg.FFprobeBinary()
	service, err := pipeline.New(cfg, pipeline.Dependencies{
		Extractor: worker.NewLandmarkExtractor(proc, weights, cfg.Paths.WorkDir),
		Features:  worker.NewFeatureExtractor(proc, weights),
		Regressor: worker.NewMeshRegressor(proc, cfg.Paths.WorkDir),
		Generator: worker.NewGenerator(proc),
		Media:     ffmpeg.New(cfg.FFmpegBinary(), logger),
		Probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBinary, path)
		},
		Weights: weights,
		Catalog: store,
		Logger:  logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.service = service
	return s, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
