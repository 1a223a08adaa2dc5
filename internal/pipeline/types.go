package pipeline

import (
	"context"
	"image"

	"aniportrait/internal/conditioning"
	"aniportrait/internal/config"
	"aniportrait/internal/media/ffmpeg"
	"aniportrait/internal/media/ffprobe"
	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
)

// Mode names, recorded on catalog runs and log lines.
const (
	ModeExtract = "extract"
	ModePose    = "pose"
	ModeAudio   = "audio"
)

// Generator is the video diffusion model. It writes FrameCount frames and
// reports a printf-style pattern naming them.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// GenerateRequest carries everything the diffusion model consumes.
type GenerateRequest struct {
	ReferenceImage string
	ReferencePose  string
	PoseFrames     []string
	Conditioning   conditioning.Result
	Width          int
	Height         int
	Frames         int
	Steps          int
	CFG            float64
	Seed           int64
	WeightDType    string
	Weights        map[string]models.Handle
	OutputDir      string
}

// GenerateResult names the frames the model produced.
type GenerateResult struct {
	FramePattern string
	FrameCount   int
}

// FeatureExtractor turns an audio file into model features covering fps
// video frames per second.
type FeatureExtractor interface {
	ExtractFeatures(ctx context.Context, audioPath string, fps float64) (mesh.Feature, error)
}

// AudioVideoMuxer combines a silent video with an audio track and returns the
// muxed output path.
type AudioVideoMuxer interface {
	Mux(ctx context.Context, videoPath, audioPath string) (string, error)
}

// MediaTool is the video codec surface; *ffmpeg.Tool satisfies it.
type MediaTool interface {
	AudioVideoMuxer
	DecodeFrames(ctx context.Context, path string, size image.Point, fn ffmpeg.FrameFunc) (int, error)
	EncodeFrames(ctx context.Context, pattern string, fps float64, output string) error
	ExtractAudio(ctx context.Context, video, output string) error
}

// Prober inspects media containers.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// WeightResolver resolves named weights; *models.Registry satisfies it.
type WeightResolver interface {
	mesh.Resolver
	ResolveAll(names ...string) (map[string]models.Handle, error)
}

// ExtractRequest asks for a pose template built from a driving video.
type ExtractRequest struct {
	Video string
}

// ExtractResult describes a written pose template.
type ExtractResult struct {
	RequestID    string  `json:"request_id"`
	TemplatePath string  `json:"template_path"`
	SourceFrames int     `json:"source_frames"`
	SourceFPS    float64 `json:"source_fps"`
	Frames       int     `json:"frames"`
	FPS          float64 `json:"fps"`
}

// PoseRequest animates Reference with the frames of PoseVideo.
type PoseRequest struct {
	Reference string
	PoseVideo string
	Options   config.Generation
}

// AudioRequest animates Reference from Audio with head motion from Template.
type AudioRequest struct {
	Reference string
	Audio     string
	Template  string
	Options   config.Generation
}

// Output describes a finished video.
type Output struct {
	RequestID string  `json:"request_id"`
	Path      string  `json:"path"`
	Frames    int     `json:"frames"`
	FPS       float64 `json:"fps"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}
