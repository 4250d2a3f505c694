package lipsync

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lipsync/internal/compose"
	"lipsync/internal/facedetect"
	"lipsync/internal/fileutil"
	"lipsync/internal/inference"
	"lipsync/internal/logging"
	"lipsync/internal/media/audio"
	"lipsync/internal/media/video"
	"lipsync/internal/observe"
	"lipsync/internal/services"
)

// FrameSource decodes an avatar video.
type FrameSource interface {
	Read(ctx context.Context, path string) (video.Sequence, error)
}

// FrameSink encodes synthesized frames and attaches the speech track.
type FrameSink interface {
	WriteFrames(ctx context.Context, frames []*image.RGBA, fps float64, outPath string) error
	Mux(ctx context.Context, audioPath, videoPath, outPath string) error
}

// AudioSource decodes speech into a 16 kHz waveform.
type AudioSource interface {
	Decode(ctx context.Context, path string) (audio.Waveform, error)
}

// NativeStrategy runs the whole pipeline in process.
type NativeStrategy struct {
	Frames   FrameSource
	Audio    AudioSource
	Sink     FrameSink
	Locator  facedetect.Locator
	Composer compose.Composer
	Model    inference.Model
	// WindowWidth is the number of spectrogram steps per window.
	WindowWidth int
	Metrics     *observe.Metrics
	Logger      *slog.Logger
}

// Tier implements Strategy.
func (s NativeStrategy) Tier() Tier { return TierNative }

// Run implements Strategy.
func (s NativeStrategy) Run(ctx context.Context, req Request) (Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if s.Frames == nil || s.Audio == nil || s.Sink == nil || s.Model == nil || s.Locator.Detector == nil {
		return Result{}, services.Wrap(services.ErrInference, string(TierNative), "setup", "native pipeline is not fully configured", nil)
	}
	if video.IsStillImage(req.AvatarPath) {
		return Result{}, services.Wrap(services.ErrInference, string(TierNative), "setup", "still images are handled by the external program", nil)
	}
	width := s.WindowWidth
	if width <= 0 {
		width = 16
	}

	started := time.Now()
	seq, err := s.Frames.Read(ctx, req.AvatarPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInference, "read_frames", "decode avatar", "", err)
	}
	s.Metrics.RecordStage(ctx, "read_frames", started)
	logger.Info("avatar frames loaded",
		logging.Int("frames", seq.Len()),
		logging.Float64("fps", seq.FPS),
	)

	started = time.Now()
	windows, err := s.audioWindows(ctx, req.AudioPath, seq.FPS, width)
	if err != nil {
		return Result{}, err
	}
	s.Metrics.RecordStage(ctx, "audio", started)

	n := audio.FrameCount(len(windows), seq.Len())
	frames := seq.Frames[:n]
	windows = windows[:n]
	logger.Info("audio windows prepared",
		logging.Int("windows", len(windows)),
		logging.Int("output_frames", n),
	)

	started = time.Now()
	crops, err := s.Locator.Locate(services.WithStage(ctx, "detect"), frames)
	if err != nil {
		return Result{}, err
	}
	s.Metrics.RecordStage(ctx, "detect", started)

	started = time.Now()
	synced, err := s.infer(ctx, logger, frames, windows, crops)
	if err != nil {
		return Result{}, err
	}
	s.Metrics.RecordStage(ctx, "inference", started)

	workDir := req.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "lipsync-native-")
		if err != nil {
			return Result{}, services.Wrap(services.ErrInference, "encode", "create scratch dir", "", err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}
	started = time.Now()
	silent := filepath.Join(workDir, "result.avi")
	if err := s.Sink.WriteFrames(ctx, synced, seq.FPS, silent); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "encode", "write frames", "", err)
	}
	if err := s.Sink.Mux(ctx, req.AudioPath, silent, req.OutputPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "encode", "mux audio", "", err)
	}
	if !fileutil.NonEmptyFile(req.OutputPath) {
		return Result{}, services.Wrap(services.ErrExternalTool, "encode", "mux audio", fmt.Sprintf("no output at %s", req.OutputPath), nil)
	}
	s.Metrics.RecordStage(ctx, "encode", started)
	return Result{OutputPath: req.OutputPath, Tier: TierNative}, nil
}

// audioWindows decodes the speech track and slices it into per-frame windows.
// Unusable audio is a validation failure; a decoder failure is not.
func (s NativeStrategy) audioWindows(ctx context.Context, path string, fps float64, width int) ([]audio.Window, error) {
	wave, err := s.Audio.Decode(ctx, path)
	if err != nil {
		return nil, services.Wrap(services.ErrInference, "audio", "decode", "", err)
	}
	if err := wave.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "validate waveform", "", err)
	}
	spec, err := audio.Melspectrogram(wave)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "melspectrogram", "", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "validate spectrogram", "", err)
	}
	windows, err := audio.Chunk(spec, fps, width)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "chunk", "", err)
	}
	return windows, nil
}

func (s NativeStrategy) infer(ctx context.Context, logger *slog.Logger, frames []*image.RGBA, windows []audio.Window, crops []facedetect.Crop) ([]*image.RGBA, error) {
	total := s.Composer.BatchCount(frames, windows)
	sampler := logging.NewProgressSampler(10)
	out := make([]*image.RGBA, 0, len(frames))
	done := 0
	err := s.Composer.ForEach(frames, windows, crops, func(batch compose.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		pred, err := s.Model.Infer(ctx, batch.Faces, batch.Mels)
		if err != nil {
			s.Metrics.RecordBatch(ctx, "error")
			return services.Wrap(services.ErrInference, "inference", "infer batch", fmt.Sprintf("frames %d-%d", batch.Indices[0], batch.Indices[batch.Size()-1]), err)
		}
		if err := pred.CheckFinite(); err != nil {
			s.Metrics.RecordBatch(ctx, "error")
			return services.Wrap(services.ErrInference, "inference", "check prediction", "", err)
		}
		synced, err := compose.Recombine(pred, batch)
		if err != nil {
			s.Metrics.RecordBatch(ctx, "error")
			return services.Wrap(services.ErrInference, "inference", "recombine", "", err)
		}
		s.Metrics.RecordBatch(ctx, "ok")
		out = append(out, synced...)
		done++
		if sampler.ShouldLog(done, total, "inference") {
			logger.Info("inference progress",
				logging.Int("batches_done", done),
				logging.Int("batches_total", total),
				logging.Float64("percent", logging.Percent(done, total)),
			)
		}
		return nil
	})
	if err != nil {
		if hasMarker(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrInference, "inference", "compose batches", "", err)
	}
	return out, nil
}

var markers = []error{
	services.ErrPrecondition,
	services.ErrDetection,
	services.ErrValidation,
	services.ErrInference,
	services.ErrExternalTool,
	services.ErrTimeout,
	services.ErrPassthrough,
	services.ErrConfiguration,
	services.ErrNotFound,
	services.ErrTransient,
}

func hasMarker(err error) bool {
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}
