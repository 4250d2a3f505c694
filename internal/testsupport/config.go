package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lipsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Model files are placed under the base directory but not created; use
// WithModelFiles to write placeholders.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AvatarsDir = filepath.Join(base, "avatars")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JobsDB = filepath.Join(base, "jobs.db")
	cfgVal.Model.CheckpointPath = filepath.Join(base, "models", "wav2lip.safetensors")
	cfgVal.Model.GraphPath = filepath.Join(base, "models", "wav2lip.onnx")
	cfgVal.Model.DetectorPath = filepath.Join(base, "models", "face_detector.onnx")
	cfgVal.Model.Device = "cpu"
	cfgVal.External.Workdir = filepath.Join(base, "wav2lip")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModelFiles writes placeholder checkpoint, graph, and detector files.
func WithModelFiles() ConfigOption {
	return func(b *configBuilder) {
		for _, path := range []string{b.cfg.Model.CheckpointPath, b.cfg.Model.GraphPath, b.cfg.Model.DetectorPath} {
			WriteFile(b.t, path, 64)
		}
	}
}

// WithAvatars writes placeholder avatar files named by id plus extension.
func WithAvatars(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			WriteFile(b.t, filepath.Join(b.cfg.Paths.AvatarsDir, name), 32)
		}
	}
}

// WithNativeDisabled turns off the in-process tier.
func WithNativeDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.NativeEnabled = false
	}
}

// WithExternal points the external tier at command and script.
func WithExternal(command, script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.External.Enabled = true
		b.cfg.External.Command = command
		b.cfg.External.Script = script
		if err := os.MkdirAll(b.cfg.External.Workdir, 0o755); err != nil {
			b.t.Fatalf("mkdir external workdir: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.AvatarsDir)
}
