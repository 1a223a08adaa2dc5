// Package ffprobe wraps the ffprobe CLI to expose container and stream
// metadata (frame rate, frame count, audio presence) for driving videos.
package ffprobe
