package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeModel(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeExternal(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.AvatarsDir, err = expandPath(c.Paths.AvatarsDir); err != nil {
		return fmt.Errorf("paths.avatars_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JobsDB) == "" {
		c.Paths.JobsDB = defaultJobsDB
	}
	if c.Paths.JobsDB, err = expandPath(c.Paths.JobsDB); err != nil {
		return fmt.Errorf("paths.jobs_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeModel() error {
	var err error
	if c.Model.CheckpointPath, err = expandPath(strings.TrimSpace(c.Model.CheckpointPath)); err != nil {
		return fmt.Errorf("model.checkpoint_path: %w", err)
	}
	if c.Model.GraphPath, err = expandPath(strings.TrimSpace(c.Model.GraphPath)); err != nil {
		return fmt.Errorf("model.graph_path: %w", err)
	}
	if c.Model.DetectorPath, err = expandPath(strings.TrimSpace(c.Model.DetectorPath)); err != nil {
		return fmt.Errorf("model.detector_path: %w", err)
	}
	if c.Model.DeviceLock, err = expandPath(strings.TrimSpace(c.Model.DeviceLock)); err != nil {
		return fmt.Errorf("model.device_lock: %w", err)
	}
	c.Model.ORTLibraryDir = strings.TrimSpace(c.Model.ORTLibraryDir)
	if c.Model.ORTLibraryDir == "" {
		if value, ok := os.LookupEnv("LIPSYNC_ORT_LIB_DIR"); ok {
			c.Model.ORTLibraryDir = strings.TrimSpace(value)
		}
	}
	c.Model.Device = strings.ToLower(strings.TrimSpace(c.Model.Device))
	if c.Model.Device == "" {
		c.Model.Device = defaultDevice
	}
	if c.Model.ImageSize <= 0 {
		c.Model.ImageSize = defaultImageSize
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = defaultBatchSize
	}
	if c.Pipeline.MelStepSize <= 0 {
		c.Pipeline.MelStepSize = defaultMelStepSize
	}
	if c.Pipeline.FaceDetBatchSize <= 0 {
		c.Pipeline.FaceDetBatchSize = defaultFaceDetBatchSize
	}
	if c.Pipeline.DetectorParallelism <= 0 {
		c.Pipeline.DetectorParallelism = 1
	}
	if len(c.Pipeline.Pads) == 0 {
		c.Pipeline.Pads = append([]int(nil), defaultPads[:]...)
	}
	if c.Pipeline.DefaultFPS <= 0 {
		c.Pipeline.DefaultFPS = defaultFPS
	}
}

func (c *Config) normalizeExternal() error {
	c.External.Command = strings.TrimSpace(c.External.Command)
	if c.External.Command == "" {
		c.External.Command = defaultExternalCommand
	}
	c.External.Script = strings.TrimSpace(c.External.Script)
	if c.External.Script == "" {
		c.External.Script = defaultExternalScript
	}
	var err error
	if c.External.Workdir, err = expandPath(strings.TrimSpace(c.External.Workdir)); err != nil {
		return fmt.Errorf("external.workdir: %w", err)
	}
	if c.External.TimeoutSeconds <= 0 {
		c.External.TimeoutSeconds = defaultExternalTimeout
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if value, ok := os.LookupEnv("LIPSYNC_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.Binary = strings.TrimSpace(value)
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = "ffprobe"
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
