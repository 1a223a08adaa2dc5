// Package pipeline runs the three request types end to end:
//
//   - ExtractPose turns a driving video into a pose template (.npy)
//   - GeneratePose animates a reference image with a driving video's frames
//   - GenerateAudio animates a reference image from speech, using a pose template
//     for head motion
//
// A request is a linear, fail-fast sequence of stages. Each stage runs under a
// stage-tagged context so log lines and wrapped errors name where they came
// from. The first failure aborts the request; scratch files and intermediate
// videos are removed on every exit path and no partial output is left behind.
// Runs are recorded in the catalog when one is configured.
package pipeline
