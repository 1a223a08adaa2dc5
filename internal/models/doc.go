// Package models resolves named model weights to on-disk handles.
//
// Weight locations come from three layers: built-in defaults under the models
// root, an optional YAML manifest, and per-name overrides from the TOML
// config. Resolution checks existence and file type once and caches the
// handle for the life of the process.
package models
