package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lipsync/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing directory failure, got %+v", result)
	}
}

func TestCheckDirectoryReadable_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result := CheckDirectoryReadable("test", file)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("expected not-a-directory failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_ReportsMissingModels(t *testing.T) {
	base := t.TempDir()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe", "python"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Paths.AvatarsDir = filepath.Join(base, "avatars")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.JobsDB = filepath.Join(base, "jobs.db")
	cfg.Model.CheckpointPath = filepath.Join(base, "models", "missing.safetensors")
	cfg.External.Workdir = filepath.Join(base, "Wav2Lip")
	for _, dir := range []string{cfg.Paths.AvatarsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Avatars directory", "Output directory", "Temp directory", "FFmpeg", "FFprobe"} {
		if !byName[name].Passed {
			t.Fatalf("expected %s to pass, got %+v", name, byName[name])
		}
	}
	if byName["Checkpoint"].Passed {
		t.Fatalf("expected missing checkpoint to fail, got %+v", byName["Checkpoint"])
	}
	if !byName["Inference script"].Passed || !strings.Contains(byName["Inference script"].Detail, "optional") {
		t.Fatalf("expected optional script to pass with note, got %+v", byName["Inference script"])
	}
	if len(Failed(results)) == 0 {
		t.Fatal("expected at least one failed check")
	}
}
