package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateExternal(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.AvatarsDir) == "" {
		return errors.New("paths.avatars_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateModel() error {
	switch c.Model.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("model.device must be one of auto, cpu, cuda (got %q)", c.Model.Device)
	}
	if c.Model.ImageSize%2 != 0 {
		return errors.New("model.image_size must be even")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.batch_size":           c.Pipeline.BatchSize,
		"pipeline.mel_step_size":        c.Pipeline.MelStepSize,
		"pipeline.face_det_batch_size":  c.Pipeline.FaceDetBatchSize,
		"pipeline.detector_parallelism": c.Pipeline.DetectorParallelism,
	}); err != nil {
		return err
	}
	if len(c.Pipeline.Pads) != 4 {
		return fmt.Errorf("pipeline.pads must have exactly 4 values (top, bottom, left, right), got %d", len(c.Pipeline.Pads))
	}
	for i, pad := range c.Pipeline.Pads {
		if pad < 0 {
			return fmt.Errorf("pipeline.pads[%d] must not be negative", i)
		}
	}
	return nil
}

func (c *Config) validateExternal() error {
	if !c.External.Enabled {
		return nil
	}
	if c.External.TimeoutSeconds <= 0 {
		return errors.New("external.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.External.Workdir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("external.workdir must be set when external.enabled is true. Edit %s (create with 'lipsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
