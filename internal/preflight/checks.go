package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"lipsync/internal/config"
	"lipsync/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSystemDeps evaluates the external binaries needed for the given config.
// ffmpeg is probed with "-version" so a configured-but-broken binary is
// reported together with the fallback that will be used instead.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	results := []deps.Status{deps.CheckFFmpeg(ctx, cfg.FFmpegBinary())}
	requirements := []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Detects source frame rate",
			Optional:    true,
		},
	}
	if cfg.External.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Inference runtime",
			Command:     cfg.External.Command,
			Description: "Runs the standalone inference program",
			Optional:    cfg.Pipeline.NativeEnabled,
		})
	}
	return append(results, deps.CheckBinaries(requirements)...)
}

// CheckModelFiles reports on the checkpoint, graph, detector, and external
// inference script. Files only needed by a disabled tier are optional.
func CheckModelFiles(cfg *config.Config) []deps.Status {
	native := cfg.Pipeline.NativeEnabled
	requirements := []deps.Requirement{
		{Name: "Checkpoint", Command: cfg.Model.CheckpointPath, Description: "Trained lip-sync weights"},
		{Name: "Graph", Command: cfg.Model.GraphPath, Description: "ONNX lip-sync graph", Optional: !native},
		{Name: "Face detector", Command: cfg.Model.DetectorPath, Description: "ONNX face detector", Optional: !native},
	}
	if cfg.External.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Inference script",
			Command:     filepath.Join(cfg.External.Workdir, cfg.External.Script),
			Description: "Standalone inference program",
			Optional:    native,
		})
	}
	return deps.CheckFiles(requirements)
}
