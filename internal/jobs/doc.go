// Package jobs persists generation job records in SQLite.
//
// A job captures one Generate request: the avatar and audio inputs, the
// output it produced, the fallback tier that produced it, and the error text
// when it failed. Callers that poll for results read these rows; the pipeline
// itself never depends on prior jobs.
package jobs
