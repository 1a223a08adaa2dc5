// Package services defines shared utilities consumed by the pipeline stages
// and the external model integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, generation modes, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed vs rejected).
//
// Every stage is deterministic given its inputs, so nothing here retries:
// errors are classified once and surfaced to the caller.
package services
