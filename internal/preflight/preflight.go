package preflight

import (
	"slices"

	"aniportrait/internal/config"
	"aniportrait/internal/models"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, free-space, and weight checks for the given
// config. Audio weights are only checked when withAudio is set.
func RunAll(cfg *config.Config, weights WeightResolver, withAudio bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if results[1].Passed {
		results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, MinFreeBytes))
	}

	if weights != nil {
		names := slices.Clone(models.VideoWeights)
		names = append(names, models.FaceLandmarker)
		if withAudio {
			names = append(names, models.AudioWeights...)
		}
		results = append(results, CheckWeights(weights, names)...)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
