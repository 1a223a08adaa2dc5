// Package preflight provides readiness checks for the external tools,
// filesystem paths, and model weights that aniportrait depends on.
//
// These checks run in two contexts:
//   - The generate commands call RunAll before starting a request so a
//     missing directory or weight fails in seconds instead of mid-inference.
//   - The CLI "aniportrait doctor" command displays every check, including
//     binary availability from CheckSystemDeps.
package preflight
