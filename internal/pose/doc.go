// Package pose derives relative head-pose sequences from per-frame rigid
// transforms and prepares them for driving a generation request.
//
// A Sequence is an ordered list of 6-vectors (three Euler angles in degrees
// followed by three translation components) anchored to the first frame.
// Build runs the full derivation: Relative decomposes each transform against
// the reference frame, Resample moves the series onto a uniform time axis at
// the requested rate, and Smooth applies an edge-truncated moving average.
// Cycle mirrors and tiles a short sequence into an exact-length driving
// sequence, and SaveTemplate/LoadTemplate persist sequences as [N, 6] .npy
// arrays.
package pose
