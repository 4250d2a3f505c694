package facedetect

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrFaceNotDetected is returned when any frame lacks a detectable face.
	ErrFaceNotDetected = errors.New("face not detected in frame; ensure the video contains a visible face in all frames")
	// ErrNativeUnavailable indicates the ONNX detector is not compiled in.
	ErrNativeUnavailable = errors.New("facedetect: onnx detector not available (build without -tags onnx)")
)

// Detector returns one bounding box per input frame, or nil where no face was
// found. The returned slice has the same length and order as frames.
type Detector interface {
	DetectBatch(ctx context.Context, frames []*image.RGBA) ([]*image.Rectangle, error)
}

// NativeOptions configures the ONNX face detector.
type NativeOptions struct {
	ModelPath  string
	LibraryDir string
	Device     string
	// Threshold is the minimum face score; zero selects the default.
	Threshold float32
}

// Crop is the padded face region of one frame.
type Crop struct {
	Index int
	Box   image.Rectangle
	// Face is a copy of the frame pixels inside Box.
	Face *image.RGBA
}
