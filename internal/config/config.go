package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Generation contains the per-request generation knobs. CLI flags override
// these values for a single request.
type Generation struct {
	Height      int     `toml:"height"`
	Width       int     `toml:"width"`
	Frames      int     `toml:"frames"`
	Seed        int64   `toml:"seed"`
	CFG         float64 `toml:"cfg"`
	Steps       int     `toml:"steps"`
	PoseFPS     int     `toml:"pose_frame_per_second"`  // 0 inherits the driving video rate
	AudioFPS    int     `toml:"audio_frame_per_second"` // output rate for audio-driven requests
	WeightDType string  `toml:"weight_dtype"`
}

// Pose contains pose-template extraction settings.
type Pose struct {
	TargetFPS       float64 `toml:"target_fps"`
	SmoothWindow    int     `toml:"smooth_window"`
	EulerConvention string  `toml:"euler_convention"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg        string   `toml:"ffmpeg"`
	FFprobe       string   `toml:"ffprobe"`
	WorkerCommand string   `toml:"worker_command"`
	WorkerArgs    []string `toml:"worker_args"`
}

// Models locates model weights. Manifest is a YAML file naming each weight;
// Weights entries override individual manifest paths.
type Models struct {
	Root     string            `toml:"root"`
	Manifest string            `toml:"manifest"`
	Weights  map[string]string `toml:"weights"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for aniportrait.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, and log directories
//   - Generation: resolution, frame count, seed, guidance, steps, fps, precision
//   - Pose: template extraction rate, smoothing window, Euler convention
//   - Tools: ffmpeg/ffprobe and the model worker command
//   - Models: weight manifest and overrides
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Generation Generation `toml:"generation"`
	Pose       Pose       `toml:"pose"`
	Tools      Tools      `toml:"tools"`
	Models     Models     `toml:"models"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aniportrait.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, scratch, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decode, encode, and mux.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Tools.FFmpeg); v != "" {
		return v
	}
	return defaultFFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Tools.FFprobe); v != "" {
		return v
	}
	return defaultFFprobe
}

// WorkerArgv returns the model worker command line.
func (c *Config) WorkerArgv() []string {
	argv := []string{strings.TrimSpace(c.Tools.WorkerCommand)}
	return append(argv, c.Tools.WorkerArgs...)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// A non-empty modelsRoot replaces the sample's models.root.
func CreateSample(path, modelsRoot string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	contents := sampleConfig
	if root := strings.TrimSpace(modelsRoot); root != "" {
		line := fmt.Sprintf("root = %q", defaultModelsRoot)
		if !strings.Contains(contents, line) {
			return fmt.Errorf("sample config has no %s line", line)
		}
		contents = strings.Replace(contents, line, fmt.Sprintf("root = %q", root), 1)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
