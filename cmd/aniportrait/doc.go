// Package main hosts the aniportrait CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto the pipeline:
// `pose extract` builds head-motion templates, `generate pose` and
// `generate audio` render videos, `templates` and `runs` read the catalog,
// and `doctor` reports tool, directory, and weight readiness. Configuration
// resolution, logging setup, and model worker startup live here so
// subcommands only translate flags into requests.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
