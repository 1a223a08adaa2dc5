// Package conditioning converts pose images and the reference image into the
// float tensors consumed by the video generator.
package conditioning
