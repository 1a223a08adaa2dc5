package config

const (
	defaultConfigPath      = "~/.config/aniportrait/config.toml"
	defaultOutputDir       = "~/aniportrait/output"
	defaultWorkDir         = "~/.local/share/aniportrait/work"
	defaultLogDir          = "~/.local/share/aniportrait/logs"
	defaultModelsRoot      = "~/.local/share/aniportrait/pretrained_model"
	defaultFFmpeg          = "ffmpeg"
	defaultFFprobe         = "ffprobe"
	defaultWorkerCommand   = "aniportrait-worker"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHeight          = 512
	defaultWidth           = 512
	defaultSeed            = 42
	defaultCFG             = 3.5
	defaultSteps           = 25
	defaultAudioFPS        = 30
	defaultWeightDType     = "fp16"
	defaultPoseTargetFPS   = 30
	defaultSmoothWindow    = 5
	defaultEulerConvention = "intrinsic"

	// MaxDimension bounds generation height and width.
	MaxDimension = 1024
	// MaxFrames bounds the frame-count override.
	MaxFrames = 9999
	// MaxCFG bounds the classifier-free guidance scale.
	MaxCFG = 10.0
	// MaxSteps bounds the diffusion step count.
	MaxSteps = 50
	// MaxFPS bounds the output frame rate.
	MaxFPS = 240
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Generation: Generation{
			Height:      defaultHeight,
			Width:       defaultWidth,
			Seed:        defaultSeed,
			CFG:         defaultCFG,
			Steps:       defaultSteps,
			AudioFPS:    defaultAudioFPS,
			WeightDType: defaultWeightDType,
		},
		Pose: Pose{
			TargetFPS:       defaultPoseTargetFPS,
			SmoothWindow:    defaultSmoothWindow,
			EulerConvention: defaultEulerConvention,
		},
		Tools: Tools{
			FFmpeg:        defaultFFmpeg,
			FFprobe:       defaultFFprobe,
			WorkerCommand: defaultWorkerCommand,
		},
		Models: Models{
			Root: defaultModelsRoot,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
