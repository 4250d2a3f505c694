package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"lipsync/internal/compose"
	"lipsync/internal/config"
	"lipsync/internal/deps"
	"lipsync/internal/facedetect"
	"lipsync/internal/inference"
	"lipsync/internal/jobs"
	"lipsync/internal/lipsync"
	"lipsync/internal/logging"
	"lipsync/internal/media/audio"
	"lipsync/internal/media/video"
	"lipsync/internal/observe"
	"lipsync/internal/onnxrt"
)

// pipelineRuntime owns the resources a pipeline holds for one process.
type pipelineRuntime struct {
	pipeline *lipsync.Pipeline
	store    *jobs.Store
	closers  []io.Closer
}

func (r *pipelineRuntime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}

// nativeCompiled reports whether the in-process backend was built in.
func nativeCompiled() bool {
	return onnxrt.Available() && inference.NativeAvailable() && facedetect.NativeAvailable()
}

// newModelCache returns the lazily loaded native lip-sync model.
func newModelCache(cfg *config.Config, logger *slog.Logger) *inference.Cache {
	return inference.NewCache(inference.NativeLoader(inference.NativeOptions{
		GraphPath:      cfg.Model.GraphPath,
		CheckpointPath: cfg.Model.CheckpointPath,
		LibraryDir:     cfg.Model.ORTLibraryDir,
		Device:         cfg.Model.Device,
	}), cfg.Model.DeviceLock, logging.NewComponentLogger(logger, "inference"))
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipelineRuntime, error) {
	store, err := jobs.Open(cfg.Paths.JobsDB)
	if err != nil {
		return nil, err
	}
	rt := &pipelineRuntime{store: store}

	ffmpegBin, err := deps.ResolveFFmpeg(ctx, cfg.FFmpegBinary())
	if err != nil {
		logging.WarnWithContext(logger, "ffmpeg probe failed; using configured binary", "ffmpeg_unresolved",
			logging.String("binary", cfg.FFmpegBinary()),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary"),
			logging.String(logging.FieldImpact, "media decoding and muxing may fail"),
			logging.Error(err),
		)
		ffmpegBin = cfg.FFmpegBinary()
	}
	top, bottom, left, right := cfg.PadValues()
	pads := facedetect.Pads{Top: top, Bottom: bottom, Left: left, Right: right}
	metrics := observe.DefaultMetrics()

	p := &lipsync.Pipeline{
		Passthrough:    lipsync.PassthroughStrategy{},
		CheckpointPath: cfg.Model.CheckpointPath,
		TempDir:        cfg.Paths.TempDir,
		Jobs:           store,
		Metrics:        metrics,
		Logger:         logger,
	}

	switch {
	case !cfg.Pipeline.NativeEnabled:
		logger.Debug("native tier disabled by configuration")
	case !nativeCompiled():
		logger.Info("native tier unavailable; binary built without the onnx tag",
			logging.String(logging.FieldEventType, "native_unavailable"),
		)
	default:
		model := newModelCache(cfg, logger)
		detector := &facedetect.Lazy{New: func() (facedetect.Detector, error) {
			return facedetect.NewNativeDetector(facedetect.NativeOptions{
				ModelPath:  cfg.Model.DetectorPath,
				LibraryDir: cfg.Model.ORTLibraryDir,
				Device:     cfg.Model.Device,
			})
		}}
		rt.closers = append(rt.closers, model, detector)
		p.Native = lipsync.NativeStrategy{
			Frames: video.Reader{FFmpeg: ffmpegBin, FFprobe: cfg.FFprobeBinary(), DefaultFPS: cfg.Pipeline.DefaultFPS},
			Audio:  audio.Decoder{FFmpeg: ffmpegBin},
			Sink:   video.Writer{FFmpeg: ffmpegBin},
			Locator: facedetect.Locator{
				Detector:    detector,
				BatchSize:   cfg.Pipeline.FaceDetBatchSize,
				Parallelism: cfg.Pipeline.DetectorParallelism,
				Pads:        pads,
				Logger:      logging.NewComponentLogger(logger, "facedetect"),
			},
			Composer:    compose.Composer{ImageSize: cfg.Model.ImageSize, BatchSize: cfg.Pipeline.BatchSize},
			Model:       model,
			WindowWidth: cfg.Pipeline.MelStepSize,
			Metrics:     metrics,
			Logger:      logging.NewComponentLogger(logger, "native"),
		}
	}

	if cfg.External.Enabled {
		p.External = lipsync.ExternalStrategy{
			Command:        cfg.External.Command,
			Script:         cfg.External.Script,
			Workdir:        cfg.External.Workdir,
			CheckpointPath: cfg.Model.CheckpointPath,
			Pads:           pads,
			Timeout:        cfg.ExternalTimeout(),
			FFmpegDir:      deps.DirOf(ffmpegBin),
			Runner:         lipsync.ExecRunner{},
			Logger:         logging.NewComponentLogger(logger, "external"),
		}
	}

	rt.pipeline = p
	return rt, nil
}
