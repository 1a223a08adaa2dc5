package worker

import (
	"context"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
	"aniportrait/internal/services"
)

type featureParams struct {
	Audio   string  `json:"audio"`
	FPS     float64 `json:"fps"`
	Weights string  `json:"weights"`
}

type featureResult struct {
	FeaturePath string `json:"feature_path"`
	SeqLen      int    `json:"seq_len"`
}

// FeatureExtractor computes audio features with the worker's speech encoder.
type FeatureExtractor struct {
	caller  Caller
	weights mesh.Resolver
}

// NewFeatureExtractor returns a feature extractor backed by caller.
func NewFeatureExtractor(caller Caller, weights mesh.Resolver) *FeatureExtractor {
	return &FeatureExtractor{caller: caller, weights: weights}
}

// ExtractFeatures returns the feature matrix for audioPath and the number of
// video frames it spans at fps.
func (f *FeatureExtractor) ExtractFeatures(ctx context.Context, audioPath string, fps float64) (mesh.Feature, error) {
	handle, err := f.weights.Resolve(models.Wav2Vec)
	if err != nil {
		return mesh.Feature{}, err
	}
	var res featureResult
	if err := f.caller.Call(ctx, "audio_features", featureParams{Audio: audioPath, FPS: fps, Weights: handle.Path}, &res); err != nil {
		return mesh.Feature{}, err
	}
	defer func() { _ = os.Remove(res.FeaturePath) }()
	if res.SeqLen < 1 {
		return mesh.Feature{}, services.Wrap(services.ErrExternalTool, "audio_features", "decode",
			fmt.Sprintf("seq_len %d", res.SeqLen), nil)
	}
	values, err := readMatrix(res.FeaturePath)
	if err != nil {
		return mesh.Feature{}, services.Wrap(services.ErrExternalTool, "audio_features", "decode", "", err)
	}
	return mesh.Feature{Values: values, SeqLen: res.SeqLen}, nil
}

type regressParams struct {
	Feature string `json:"feature"`
	SeqLen  int    `json:"seq_len"`
	Weights string `json:"weights"`
}

type regressResult struct {
	OutputPath string `json:"output_path"`
}

// MeshRegressor implements mesh.Regressor on top of the worker.
type MeshRegressor struct {
	caller  Caller
	scratch string
}

// NewMeshRegressor returns a regressor that stages arrays in scratch.
func NewMeshRegressor(caller Caller, scratch string) *MeshRegressor {
	return &MeshRegressor{caller: caller, scratch: scratch}
}

// Predict runs the audio-to-mesh model and returns a [seqLen, V*3] matrix.
func (r *MeshRegressor) Predict(ctx context.Context, weights models.Handle, feature mesh.Feature, seqLen int) (*mat.Dense, error) {
	tmp, err := os.CreateTemp(r.scratch, "feature-*.npy")
	if err != nil {
		return nil, fmt.Errorf("stage audio feature: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()
	if err := writeMatrix(path, feature.Values); err != nil {
		return nil, err
	}

	var res regressResult
	if err := r.caller.Call(ctx, "audio2mesh", regressParams{Feature: path, SeqLen: seqLen, Weights: weights.Path}, &res); err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(res.OutputPath) }()
	out, err := readMatrix(res.OutputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "audio2mesh", "decode", "", err)
	}
	return out, nil
}
