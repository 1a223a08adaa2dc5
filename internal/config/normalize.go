package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizePose()
	c.normalizeTools()
	if err := c.normalizeModels(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("ANIPORTRAIT_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	c.Generation.WeightDType = strings.ToLower(strings.TrimSpace(c.Generation.WeightDType))
	switch c.Generation.WeightDType {
	case "":
		c.Generation.WeightDType = defaultWeightDType
	case "half", "float16":
		c.Generation.WeightDType = "fp16"
	case "full", "float32":
		c.Generation.WeightDType = "fp32"
	}
}

func (c *Config) normalizePose() {
	c.Pose.EulerConvention = strings.ToLower(strings.TrimSpace(c.Pose.EulerConvention))
	if c.Pose.EulerConvention == "" {
		c.Pose.EulerConvention = defaultEulerConvention
	}
	if c.Pose.TargetFPS == 0 {
		c.Pose.TargetFPS = defaultPoseTargetFPS
	}
	if c.Pose.SmoothWindow == 0 {
		c.Pose.SmoothWindow = defaultSmoothWindow
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.WorkerCommand = strings.TrimSpace(c.Tools.WorkerCommand)
	if value, ok := os.LookupEnv("ANIPORTRAIT_WORKER"); ok && strings.TrimSpace(value) != "" {
		c.Tools.WorkerCommand = strings.TrimSpace(value)
	}
	if c.Tools.WorkerCommand == "" {
		c.Tools.WorkerCommand = defaultWorkerCommand
	}
}

func (c *Config) normalizeModels() error {
	var err error
	if strings.TrimSpace(c.Models.Root) == "" {
		c.Models.Root = defaultModelsRoot
	}
	if c.Models.Root, err = expandPath(c.Models.Root); err != nil {
		return fmt.Errorf("models.root: %w", err)
	}
	if manifest := strings.TrimSpace(c.Models.Manifest); manifest != "" {
		if !filepath.IsAbs(manifest) && !strings.HasPrefix(manifest, "~") {
			manifest = filepath.Join(c.Models.Root, manifest)
		}
		if c.Models.Manifest, err = expandPath(manifest); err != nil {
			return fmt.Errorf("models.manifest: %w", err)
		}
	}
	if len(c.Models.Weights) > 0 {
		weights := make(map[string]string, len(c.Models.Weights))
		for name, path := range c.Models.Weights {
			name = strings.TrimSpace(name)
			path = strings.TrimSpace(path)
			if name == "" || path == "" {
				continue
			}
			weights[name] = path
		}
		c.Models.Weights = weights
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
