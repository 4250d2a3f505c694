package facedetect

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"lipsync/internal/logging"
	"lipsync/internal/services"
)

const defaultBatchSize = 16

// Locator runs a Detector over a frame sequence and produces padded crops.
type Locator struct {
	Detector    Detector
	BatchSize   int
	Parallelism int
	Pads        Pads
	Logger      *slog.Logger
}

// Locate returns one crop per frame in frame order. A frame without a face
// fails the whole call with ErrFaceNotDetected.
func (l Locator) Locate(ctx context.Context, frames []*image.RGBA) ([]Crop, error) {
	if l.Detector == nil {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "locate faces", "no detector configured", nil)
	}
	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrValidation, "detect", "locate faces", "no frames to scan", nil)
	}
	batchSize := l.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	parallelism := l.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	logger := l.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	boxes := make([]*image.Rectangle, len(frames))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for start := 0; start < len(frames); start += batchSize {
		end := min(start+batchSize, len(frames))
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			found, err := l.Detector.DetectBatch(groupCtx, frames[start:end])
			if err != nil {
				return services.Wrap(services.ErrInference, "detect", "detect batch", fmt.Sprintf("frames %d-%d", start, end-1), err)
			}
			if len(found) != end-start {
				return services.Wrap(services.ErrInference, "detect", "detect batch", fmt.Sprintf("detector returned %d boxes for %d frames", len(found), end-start), nil)
			}
			copy(boxes[start:end], found)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	crops := make([]Crop, len(frames))
	for i, box := range boxes {
		if box == nil {
			return nil, services.Wrap(services.ErrDetection, "detect", "locate faces", "", ErrFaceNotDetected)
		}
		bounds := frames[i].Bounds()
		padded := l.Pads.Apply(*box, bounds)
		if padded.Empty() {
			return nil, services.Wrap(services.ErrDetection, "detect", "locate faces", "", ErrFaceNotDetected)
		}
		crops[i] = Crop{Index: i, Box: padded, Face: cropCopy(frames[i], padded)}
	}
	logger.Debug("faces located",
		logging.Int("frames", len(frames)),
		logging.Int("batch_size", batchSize),
		logging.Int("parallelism", parallelism),
	)
	return crops, nil
}

func cropCopy(frame *image.RGBA, box image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), frame, box.Min, draw.Src)
	return out
}
