// Package worker talks to the model worker process over newline-delimited
// JSON on stdin/stdout.
//
// The worker hosts every black-box network (landmark detection, audio
// feature extraction, audio-to-mesh regression, video diffusion) so weights
// load once per process. Each request carries an id, an op name, and
// params; each response echoes the id with either a result or an error.
// Large arrays travel as .npy files in a scratch directory and images as
// PNG files, never inline.
package worker
