package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"aniportrait/internal/config"
	"aniportrait/internal/deps"
	"aniportrait/internal/models"
)

// MinFreeBytes is the free space the output and work directories need for
// intermediate frames and encoded video.
const MinFreeBytes = 2 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least min bytes free.
func CheckFreeSpace(name, path string, min uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s free, need %s)", path, humanize.IBytes(free), humanize.IBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, humanize.IBytes(free))}
}

// WeightResolver resolves named model weights; *models.Registry satisfies it.
type WeightResolver interface {
	Resolve(name string) (models.Handle, error)
}

// CheckWeights resolves each named weight and reports one result per name.
func CheckWeights(weights WeightResolver, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		handle, err := weights.Resolve(name)
		if err != nil {
			results = append(results, Result{Name: "Weight " + name, Detail: err.Error()})
			continue
		}
		results = append(results, Result{Name: "Weight " + name, Passed: true, Detail: handle.Path})
	}
	return results
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the generate commands and `aniportrait doctor` use this so the
// requirements list lives in one place.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for frame decode, encode, and audio mux",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for driving video inspection",
		},
		{
			Name:        "Model worker",
			Command:     cfg.Tools.WorkerCommand,
			Description: "Runs landmark, audio, and diffusion models",
		},
	}
	results := deps.CheckBinaries(requirements)
	if results[0].Available {
		results = append(results, deps.CheckFFmpegEncoder(ctx, cfg.FFmpegBinary(), deps.RequiredEncoder))
	}
	return results
}
