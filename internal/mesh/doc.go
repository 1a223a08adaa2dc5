// Package mesh turns audio features into per-frame face meshes and projects
// those meshes into 2D landmark sets.
//
// Driver wraps an external regression model that predicts per-frame vertex
// offsets from an audio feature matrix; the offsets are added to the
// reference face mesh. Projector composes each mesh with the reference head
// transform and a relative pose, then projects it through a fixed
// perspective camera into pixel coordinates.
package mesh
