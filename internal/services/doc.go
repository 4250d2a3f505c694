// Package services defines shared utilities consumed by the generation
// pipeline and its fallback strategies.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper. IsFatal decides whether a
//     failure stops the fallback chain and FailureStatus maps it to the job
//     status that gets persisted.
package services
