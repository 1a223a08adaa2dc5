package worker

import (
	"context"
	"fmt"

	"aniportrait/internal/pipeline"
	"aniportrait/internal/services"
)

type generateParams struct {
	ReferenceImage string            `json:"reference_image"`
	ReferencePose  string            `json:"reference_pose"`
	PoseFrames     []string          `json:"pose_frames"`
	PoseShape      []int             `json:"pose_shape"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Frames         int               `json:"frames"`
	Steps          int               `json:"steps"`
	CFG            float64           `json:"cfg"`
	Seed           int64             `json:"seed"`
	WeightDType    string            `json:"weight_dtype"`
	Weights        map[string]string `json:"weights"`
	OutputDir      string            `json:"output_dir"`
}

type generateResult struct {
	FramePattern string `json:"frame_pattern"`
	FrameCount   int    `json:"frame_count"`
}

// Generator implements pipeline.Generator with the worker's diffusion model.
type Generator struct {
	caller Caller
}

// NewGenerator returns a generator backed by caller.
func NewGenerator(caller Caller) *Generator {
	return &Generator{caller: caller}
}

// Generate renders req.Frames frames into req.OutputDir.
func (g *Generator) Generate(ctx context.Context, req pipeline.GenerateRequest) (pipeline.GenerateResult, error) {
	weights := make(map[string]string, len(req.Weights))
	for name, handle := range req.Weights {
		weights[name] = handle.Path
	}
	params := generateParams{
		ReferenceImage: req.ReferenceImage,
		ReferencePose:  req.ReferencePose,
		PoseFrames:     req.PoseFrames,
		PoseShape:      req.Conditioning.Pose.Shape,
		Width:          req.Width,
		Height:         req.Height,
		Frames:         req.Frames,
		Steps:          req.Steps,
		CFG:            req.CFG,
		Seed:           req.Seed,
		WeightDType:    req.WeightDType,
		Weights:        weights,
		OutputDir:      req.OutputDir,
	}
	var res generateResult
	if err := g.caller.Call(ctx, "generate", params, &res); err != nil {
		return pipeline.GenerateResult{}, err
	}
	if res.FrameCount != req.Frames {
		return pipeline.GenerateResult{}, services.Wrap(services.ErrExternalTool, "generate", "decode",
			fmt.Sprintf("worker produced %d frames, want %d", res.FrameCount, req.Frames), nil)
	}
	if res.FramePattern == "" {
		return pipeline.GenerateResult{}, services.Wrap(services.ErrExternalTool, "generate", "decode", "empty frame pattern", nil)
	}
	return pipeline.GenerateResult{FramePattern: res.FramePattern, FrameCount: res.FrameCount}, nil
}
