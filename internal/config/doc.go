// Package config loads, normalizes, and validates aniportrait configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANIPORTRAIT_WORKER. The Config type centralizes every knob the CLI and the
// pipeline need: generation parameters, pose template extraction, external
// tool locations, and the model weight manifest.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
