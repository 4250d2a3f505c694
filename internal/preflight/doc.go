// Package preflight provides readiness checks for the directories, binaries,
// and model files lipsync depends on.
//
// The CLI "lipsync status" command renders RunAll, and "lipsync generate"
// runs the same checks before starting a job so a misconfigured machine fails
// with a readable report instead of deep inside the pipeline.
package preflight
