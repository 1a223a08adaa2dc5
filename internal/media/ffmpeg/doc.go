// Package ffmpeg drives the ffmpeg CLI for the media steps of a request:
// decoding driving-video frames, encoding generated frames, extracting a
// video's audio track, and muxing audio back into the generated video.
//
// Every invocation goes through a CommandRunner so tests can substitute a
// fake without spawning processes.
package ffmpeg
