package facedetect

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"

	"lipsync/internal/services"
)

// fakeDetector reports a box derived from the red value of pixel (0,0), so
// each frame gets a distinct, order-revealing result.
type fakeDetector struct {
	missing map[uint8]bool
	calls   atomic.Int32
	err     error
}

func (f *fakeDetector) DetectBatch(_ context.Context, frames []*image.RGBA) ([]*image.Rectangle, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*image.Rectangle, len(frames))
	for i, frame := range frames {
		tag := frame.RGBAAt(0, 0).R
		if f.missing[tag] {
			continue
		}
		r := image.Rect(int(tag%10), 2, int(tag%10)+20, 30)
		out[i] = &r
	}
	return out, nil
}

func taggedFrames(n int) []*image.RGBA {
	frames := make([]*image.RGBA, n)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, 64, 48))
		img.SetRGBA(0, 0, color.RGBA{R: uint8(i), A: 255})
		img.SetRGBA(10, 10, color.RGBA{G: uint8(i), A: 255})
		frames[i] = img
	}
	return frames
}

func TestPadsFromSlice(t *testing.T) {
	p, err := PadsFromSlice([]int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("PadsFromSlice: %v", err)
	}
	if p != (Pads{Top: 1, Bottom: 2, Left: 3, Right: 4}) {
		t.Fatalf("unexpected pads %+v", p)
	}
	if got := p.Slice(); len(got) != 4 || got[3] != 4 {
		t.Fatalf("unexpected slice %v", got)
	}
	if _, err := PadsFromSlice([]int{0, 10, 0}); err == nil {
		t.Fatal("expected error for three values")
	}
	if _, err := PadsFromSlice([]int{0, -1, 0, 0}); err == nil {
		t.Fatal("expected error for negative value")
	}
}

func TestPadsApplyClampsToFrame(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)
	box := image.Rect(5, 10, 60, 75)
	got := DefaultPads.Apply(box, bounds)
	want := image.Rect(5, 10, 60, 80)
	if got != want {
		t.Fatalf("Apply = %v, want %v", got, want)
	}
	wide := Pads{Top: 20, Bottom: 20, Left: 20, Right: 20}
	if got := wide.Apply(box, bounds); got != image.Rect(0, 0, 80, 80) {
		t.Fatalf("wide Apply = %v", got)
	}
}

func TestClampIsIdempotent(t *testing.T) {
	bounds := image.Rect(0, 0, 50, 50)
	boxes := []image.Rectangle{
		image.Rect(-10, -10, 20, 20),
		image.Rect(40, 40, 90, 90),
		image.Rect(30, 5, 10, 25),
		image.Rect(60, 60, 70, 70),
	}
	for _, box := range boxes {
		once := Clamp(box, bounds)
		if twice := Clamp(once, bounds); twice != once {
			t.Fatalf("Clamp not idempotent for %v: %v then %v", box, once, twice)
		}
		if !once.In(bounds) && !once.Empty() {
			t.Fatalf("clamped box %v escapes %v", once, bounds)
		}
	}
}

func TestLocatePreservesOrderAcrossParallelism(t *testing.T) {
	frames := taggedFrames(37)
	sequential, err := Locator{Detector: &fakeDetector{}, BatchSize: 4, Parallelism: 1, Pads: DefaultPads}.Locate(context.Background(), frames)
	if err != nil {
		t.Fatalf("sequential Locate: %v", err)
	}
	parallel, err := Locator{Detector: &fakeDetector{}, BatchSize: 4, Parallelism: 6, Pads: DefaultPads}.Locate(context.Background(), frames)
	if err != nil {
		t.Fatalf("parallel Locate: %v", err)
	}
	if len(parallel) != len(frames) {
		t.Fatalf("got %d crops, want %d", len(parallel), len(frames))
	}
	for i := range frames {
		if sequential[i].Box != parallel[i].Box || parallel[i].Index != i {
			t.Fatalf("crop %d differs: %+v vs %+v", i, sequential[i].Box, parallel[i].Box)
		}
		wantMinX := i % 10
		if parallel[i].Box.Min.X != wantMinX {
			t.Fatalf("crop %d has Min.X %d, want %d", i, parallel[i].Box.Min.X, wantMinX)
		}
	}
}

func TestLocateCropsCopyPixels(t *testing.T) {
	frames := taggedFrames(1)
	crops, err := Locator{Detector: &fakeDetector{}}.Locate(context.Background(), frames)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	crop := crops[0]
	if crop.Face.Bounds().Dx() != crop.Box.Dx() || crop.Face.Bounds().Dy() != crop.Box.Dy() {
		t.Fatalf("face size %v does not match box %v", crop.Face.Bounds(), crop.Box)
	}
	// Frame pixel (10,10) lands at (10,8) in a crop starting at (0,2).
	if got := crop.Face.RGBAAt(10, 8); got.A != 255 {
		t.Fatalf("expected copied pixel, got %+v", got)
	}
	frames[0].SetRGBA(10, 10, color.RGBA{B: 200, A: 255})
	if crop.Face.RGBAAt(10, 8).B == 200 {
		t.Fatal("crop should not alias frame memory")
	}
}

func TestLocateMissingFaceIsFatal(t *testing.T) {
	frames := taggedFrames(20)
	detector := &fakeDetector{missing: map[uint8]bool{13: true}}
	_, err := Locator{Detector: detector, BatchSize: 16, Parallelism: 2}.Locate(context.Background(), frames)
	if !errors.Is(err, services.ErrDetection) || !errors.Is(err, ErrFaceNotDetected) {
		t.Fatalf("expected detection error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("detection failure should be fatal")
	}
	if strings.Contains(err.Error(), "13") {
		t.Fatalf("error should not name the frame index: %v", err)
	}
	if !strings.Contains(err.Error(), "ensure the video contains a visible face in all frames") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestLocateDetectorFailureIsRecoverable(t *testing.T) {
	detector := &fakeDetector{err: errors.New("session crashed")}
	_, err := Locator{Detector: detector}.Locate(context.Background(), taggedFrames(3))
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected inference marker, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("detector runtime failure should not be fatal")
	}
}

func TestLocateRejectsEmptyInput(t *testing.T) {
	if _, err := (Locator{Detector: &fakeDetector{}}).Locate(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty frames")
	}
	if _, err := (Locator{}).Locate(context.Background(), taggedFrames(1)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLocateBatchesFrames(t *testing.T) {
	detector := &fakeDetector{}
	if _, err := (Locator{Detector: detector, BatchSize: 16}).Locate(context.Background(), taggedFrames(33)); err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got := detector.calls.Load(); got != 3 {
		t.Fatalf("detector called %d times, want 3", got)
	}
}

func TestBestBoxesPicksHighestScore(t *testing.T) {
	frames := []*image.RGBA{
		image.NewRGBA(image.Rect(0, 0, 200, 80)),
		image.NewRGBA(image.Rect(0, 0, 200, 80)),
	}
	// Two candidates per frame; score pairs are (background, face).
	scores := []float32{
		0.9, 0.1, 0.2, 0.8,
		0.5, 0.5, 0.6, 0.4,
	}
	boxes := []float32{
		0, 0, 1, 1, 0.25, 0.125, 0.75, 0.875,
		0, 0, 1, 1, 0, 0, 1, 1,
	}
	got := bestBoxes(scores, boxes, frames, 2, 0.7)
	if got[0] == nil || *got[0] != image.Rect(50, 10, 150, 70) {
		t.Fatalf("frame 0 box = %v", got[0])
	}
	if got[1] != nil {
		t.Fatalf("frame 1 should have no face, got %v", got[1])
	}
}

func TestNativeDetectorStubReportsUnavailable(t *testing.T) {
	if NativeAvailable() {
		t.Skip("built with onnx tag")
	}
	if _, err := NewNativeDetector(NativeOptions{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("expected ErrNativeUnavailable, got %v", err)
	}
}

func TestLazyBuildsOnceAndRetries(t *testing.T) {
	builds := 0
	lazy := &Lazy{New: func() (Detector, error) {
		builds++
		if builds == 1 {
			return nil, errors.New("model missing")
		}
		return &fakeDetector{}, nil
	}}
	if _, err := lazy.DetectBatch(context.Background(), taggedFrames(1)); err == nil {
		t.Fatal("expected first build to fail")
	}
	for range 2 {
		if _, err := lazy.DetectBatch(context.Background(), taggedFrames(2)); err != nil {
			t.Fatalf("DetectBatch: %v", err)
		}
	}
	if builds != 2 {
		t.Fatalf("built %d times, want 2", builds)
	}
	if err := lazy.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := (&Lazy{}).DetectBatch(context.Background(), nil); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("expected ErrNativeUnavailable, got %v", err)
	}
}
