package preflight

import (
	"context"

	"lipsync/internal/config"
	"lipsync/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and dependency checks for the given config.
// Optional dependencies that are missing still pass, with the reason kept in
// Detail.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Avatars directory", cfg.Paths.AvatarsDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromStatus(status))
	}
	for _, status := range CheckModelFiles(cfg) {
		results = append(results, fromStatus(status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
	if status.Available && result.Detail == "" {
		result.Detail = status.Command
	}
	if !status.Available && status.Optional && result.Detail != "" {
		result.Detail += " (optional)"
	}
	return result
}
