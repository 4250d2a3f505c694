// Package logging builds the slog loggers used by lipsync: a compact console
// handler for the terminal, a JSON handler for the log file, and a tee that
// feeds both. Helpers tag lines with the job ID and stage carried in a
// context.
package logging
