package main

import (
	"path/filepath"
	"strings"
	"testing"

	"aniportrait/internal/testsupport"
)

func TestDoctorReportsMissingTools(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.FFmpeg = "clearly-not-present-ffmpeg"
	env.cfg.Tools.FFprobe = "clearly-not-present-ffprobe"
	env.cfg.Tools.WorkerCommand = "clearly-not-present-worker"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail with missing tools and weights")
	}
	requireContains(t, out, "== Tools ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[ERROR] binary \"clearly-not-present-ffmpeg\" not found")
	requireContains(t, out, "Output directory:")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Weight vae:")
	requireContains(t, out, "Known weights:")
}

func TestDoctorFindsStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("ffprobe", "aniportrait-worker"))

	out, _, _ := runCLI(t, []string{"doctor", "--audio=false"}, env.configPath)
	requireContains(t, out, "[OK] "+filepath.Join(env.baseDir, "bin", "ffprobe"))
	requireContains(t, out, "[OK] "+filepath.Join(env.baseDir, "bin", "aniportrait-worker"))
	if strings.Contains(out, "Weight wav2vec:") {
		t.Fatalf("audio weights should be skipped with --audio=false:\n%s", out)
	}
}
