package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"aniportrait/internal/media/ffmpeg"
	"aniportrait/internal/textutil"
)

// OutputName builds <ref>_<driver>_<H>x<W>_<cfg>_<HHMMSS>.mp4. The guidance
// scale is truncated to an integer.
func OutputName(reference, driver string, height, width int, cfg float64, now time.Time) string {
	return fmt.Sprintf("%s_%s_%dx%d_%d_%s.mp4",
		textutil.Stem(reference), textutil.Stem(driver), height, width, int(cfg), now.Format("150405"))
}

// outputPaths returns the final path and the silent intermediate in dir.
func outputPaths(dir, name string) (final, silent string) {
	final = filepath.Join(dir, name)
	ext := filepath.Ext(name)
	silent = filepath.Join(dir, name[:len(name)-len(ext)]+ffmpeg.NoAudioSuffix+ext)
	return final, silent
}
