package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if err := c.validatePose(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// Validate checks generation values against the accepted ranges. It is also
// applied to per-request overrides.
func (g Generation) Validate() error {
	if err := ensureRange(map[string]int{
		"generation.height": g.Height,
		"generation.width":  g.Width,
	}, 0, MaxDimension); err != nil {
		return err
	}
	if g.Frames < 0 || g.Frames > MaxFrames {
		return fmt.Errorf("generation.frames must be between 0 and %d", MaxFrames)
	}
	if math.IsNaN(g.CFG) || g.CFG < 0 || g.CFG > MaxCFG {
		return fmt.Errorf("generation.cfg must be between 0.0 and %.1f", MaxCFG)
	}
	if g.Steps < 0 || g.Steps > MaxSteps {
		return fmt.Errorf("generation.steps must be between 0 and %d", MaxSteps)
	}
	if err := ensureRange(map[string]int{
		"generation.pose_frame_per_second":  g.PoseFPS,
		"generation.audio_frame_per_second": g.AudioFPS,
	}, 0, MaxFPS); err != nil {
		return err
	}
	switch g.WeightDType {
	case "fp16", "fp32":
	default:
		return fmt.Errorf("generation.weight_dtype: unsupported value %q (use fp16 or fp32)", g.WeightDType)
	}
	return nil
}

func (c *Config) validatePose() error {
	if math.IsNaN(c.Pose.TargetFPS) || math.IsInf(c.Pose.TargetFPS, 0) || c.Pose.TargetFPS <= 0 {
		return errors.New("pose.target_fps must be positive")
	}
	if c.Pose.SmoothWindow < 1 || c.Pose.SmoothWindow%2 == 0 {
		return errors.New("pose.smooth_window must be a positive odd number")
	}
	switch c.Pose.EulerConvention {
	case "extrinsic", "intrinsic":
	default:
		return fmt.Errorf("pose.euler_convention: unsupported value %q (use extrinsic or intrinsic)", c.Pose.EulerConvention)
	}
	return nil
}

func (c *Config) validateTools() error {
	if strings.TrimSpace(c.Tools.WorkerCommand) == "" {
		return errors.New("tools.worker_command must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensureRange(values map[string]int, lo, hi int) error {
	for key, value := range values {
		if value < lo || value > hi {
			return fmt.Errorf("%s must be between %d and %d", key, lo, hi)
		}
	}
	return nil
}
