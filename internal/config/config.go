package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	AvatarsDir string `toml:"avatars_dir"`
	OutputDir  string `toml:"output_dir"`
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
	JobsDB     string `toml:"jobs_db"`
}

// Model contains the neural model locations and device selection.
type Model struct {
	// CheckpointPath is the trained lip-sync weight file. The native backend
	// expects a safetensors state dict; the external program reads the same
	// path in its own format.
	CheckpointPath string `toml:"checkpoint_path"`
	// GraphPath is the ONNX graph whose initializers are exposed as inputs.
	GraphPath string `toml:"graph_path"`
	// DetectorPath is the ONNX face detector model.
	DetectorPath string `toml:"detector_path"`
	// Device is one of "auto", "cpu", or "cuda".
	Device    string `toml:"device"`
	ImageSize int    `toml:"image_size"`
	// DeviceLock, when set, serializes inference across processes sharing one accelerator.
	DeviceLock    string `toml:"device_lock"`
	ORTLibraryDir string `toml:"ort_library_dir"`
}

// Pipeline contains the batching and cropping knobs.
type Pipeline struct {
	BatchSize           int     `toml:"batch_size"`
	MelStepSize         int     `toml:"mel_step_size"`
	FaceDetBatchSize    int     `toml:"face_det_batch_size"`
	DetectorParallelism int     `toml:"detector_parallelism"`
	Pads                []int   `toml:"pads"`
	DefaultFPS          float64 `toml:"default_fps"`
	NativeEnabled       bool    `toml:"native_enabled"`
}

// External contains the standalone inference program settings.
type External struct {
	Enabled        bool   `toml:"enabled"`
	Command        string `toml:"command"`
	Script         string `toml:"script"`
	Workdir        string `toml:"workdir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// FFmpeg contains the media tool binaries.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lipsync.
//
// Configuration sections by subsystem:
//   - Paths: avatar library, outputs, scratch space, logs, job database
//   - Model: checkpoint, graph, detector, and device selection
//   - Pipeline: batch sizes, window width, crop pads
//   - External: the standalone inference program used as fallback
//   - FFmpeg: media tool binaries
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Model    Model    `toml:"model"`
	Pipeline Pipeline `toml:"pipeline"`
	External External `toml:"external"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lipsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, scratch, and log directories.
// The avatar directory is never created; it is user content.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.JobsDB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decoding and muxing.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.FFmpeg.Binary); v != "" {
		return v
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.FFmpeg.FFprobeBinary); v != "" {
		return v
	}
	return "ffprobe"
}

// ExternalTimeout returns the hard limit for one external inference run.
func (c *Config) ExternalTimeout() time.Duration {
	return time.Duration(c.External.TimeoutSeconds) * time.Second
}

// PadValues returns the crop pads as top, bottom, left, right.
func (c *Config) PadValues() (top, bottom, left, right int) {
	p := c.Pipeline.Pads
	if len(p) != 4 {
		return defaultPads[0], defaultPads[1], defaultPads[2], defaultPads[3]
	}
	return p[0], p[1], p[2], p[3]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultTempDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "lipsync", "tmp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/lipsync/tmp"
	}
	return filepath.Join(home, ".cache", "lipsync", "tmp")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
