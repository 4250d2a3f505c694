//go:build onnx

package facedetect

import (
	"context"
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"lipsync/internal/onnxrt"
)

const (
	detectorWidth    = 320
	detectorHeight   = 240
	defaultThreshold = 0.7
)

// NativeAvailable reports that the ONNX detector is compiled in.
func NativeAvailable() bool { return true }

// onnxDetector runs an UltraFace-style graph with "input", "scores" and
// "boxes" tensors. Boxes are normalized corner coordinates.
type onnxDetector struct {
	session   *ort.DynamicAdvancedSession
	threshold float32
}

// NewNativeDetector loads the detector graph at opts.ModelPath.
func NewNativeDetector(opts NativeOptions) (Detector, error) {
	if err := onnxrt.Init(opts.LibraryDir); err != nil {
		return nil, err
	}
	sessionOpts, err := onnxrt.SessionOptions(opts.Device)
	if err != nil {
		return nil, err
	}
	defer sessionOpts.Destroy()
	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{"input"}, []string{"scores", "boxes"}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("face detector: load %s: %w", opts.ModelPath, err)
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &onnxDetector{session: session, threshold: threshold}, nil
}

func (d *onnxDetector) DetectBatch(ctx context.Context, frames []*image.RGBA) ([]*image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	plane := detectorWidth * detectorHeight
	data := make([]float32, len(frames)*3*plane)
	scaled := image.NewRGBA(image.Rect(0, 0, detectorWidth, detectorHeight))
	for b, frame := range frames {
		draw.BiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)
		base := b * 3 * plane
		for i := 0; i < plane; i++ {
			px := scaled.Pix[i*4 : i*4+3]
			data[base+i] = (float32(px[0]) - 127) / 128
			data[base+plane+i] = (float32(px[1]) - 127) / 128
			data[base+2*plane+i] = (float32(px[2]) - 127) / 128
		}
	}

	input, err := ort.NewTensor(ort.NewShape(int64(len(frames)), 3, detectorHeight, detectorWidth), data)
	if err != nil {
		return nil, fmt.Errorf("face detector: input tensor: %w", err)
	}
	defer input.Destroy()
	outputs := []ort.Value{nil, nil}
	if err := d.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("face detector: run: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("face detector: unexpected scores tensor type")
	}
	boxes, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("face detector: unexpected boxes tensor type")
	}
	shape := scores.GetShape()
	if len(shape) != 3 || shape[0] != int64(len(frames)) || shape[2] != 2 {
		return nil, fmt.Errorf("face detector: unexpected scores shape %v", shape)
	}
	return bestBoxes(scores.GetData(), boxes.GetData(), frames, int(shape[1]), d.threshold), nil
}

// Close releases the session.
func (d *onnxDetector) Close() error {
	if d.session != nil {
		err := d.session.Destroy()
		d.session = nil
		return err
	}
	return nil
}
