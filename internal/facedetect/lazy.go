package facedetect

import (
	"context"
	"image"
	"io"
	"sync"
)

// Lazy builds its Detector on first use and keeps it for later calls. A
// failed build is retried on the next call.
type Lazy struct {
	New func() (Detector, error)

	mu       sync.Mutex
	detector Detector
}

// DetectBatch implements Detector.
func (l *Lazy) DetectBatch(ctx context.Context, frames []*image.RGBA) ([]*image.Rectangle, error) {
	detector, err := l.get()
	if err != nil {
		return nil, err
	}
	return detector.DetectBatch(ctx, frames)
}

func (l *Lazy) get() (Detector, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.detector != nil {
		return l.detector, nil
	}
	if l.New == nil {
		return nil, ErrNativeUnavailable
	}
	detector, err := l.New()
	if err != nil {
		return nil, err
	}
	l.detector = detector
	return detector, nil
}

// Close releases the detector if it was built.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	detector := l.detector
	l.detector = nil
	if closer, ok := detector.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
