package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredEncoder is the video encoder the output stage uses.
const RequiredEncoder = "libx264"

// CheckFFmpegEncoder reports whether ffmpeg was built with encoder.
func CheckFFmpegEncoder(ctx context.Context, ffmpegCommand, encoder string) Status {
	command := strings.TrimSpace(ffmpegCommand)
	if command == "" {
		command = "ffmpeg"
	}
	status := Check(Requirement{
		Name:        "FFmpeg " + encoder,
		Command:     command,
		Description: "Required to encode generated frames",
	})
	if !status.Available {
		return status
	}
	status.Available = false

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, status.Path, "-hide_banner", "-encoders").Output()
	if err != nil {
		status.Detail = fmt.Sprintf("list encoders: %v", err)
		return status
	}
	if !hasEncoder(out, encoder) {
		status.Detail = fmt.Sprintf("encoder %q not available", encoder)
		return status
	}
	status.Available = true
	return status
}

// hasEncoder scans `ffmpeg -encoders` output, where each encoder line is
// "<flags> <name> <description>".
func hasEncoder(listing []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == encoder {
			return true
		}
	}
	return false
}
