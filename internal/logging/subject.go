package logging

import "strings"

// FormatSubject builds the mode/stage subject string used in console output.
func FormatSubject(mode, stage string) string {
	mode = strings.TrimSpace(mode)
	stage = strings.TrimSpace(stage)
	switch {
	case mode != "" && stage != "":
		return mode + " · " + stage
	case mode != "":
		return mode
	default:
		return stage
	}
}
