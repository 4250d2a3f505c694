//go:build onnx

package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"lipsync/internal/onnxrt"
)

const (
	audioInputName = "audio_sequences"
	faceInputName  = "face_sequences"
	outputName     = "output"
)

// NativeAvailable reports that the ONNX Runtime backend is compiled in.
func NativeAvailable() bool { return true }

// onnxModel runs a graph whose parameters are graph inputs. Checkpoint
// tensors are bound to those inputs once and reused for every batch.
type onnxModel struct {
	session *ort.DynamicAdvancedSession
	params  []ort.Value
}

// NewNativeModel loads the checkpoint and graph described by opts.
func NewNativeModel(opts NativeOptions) (Model, error) {
	ckpt, err := LoadCheckpoint(opts.CheckpointPath)
	if err != nil {
		return nil, err
	}
	if err := onnxrt.Init(opts.LibraryDir); err != nil {
		return nil, err
	}
	sessionOpts, err := onnxrt.SessionOptions(opts.Device)
	if err != nil {
		return nil, err
	}
	defer sessionOpts.Destroy()

	names := ckpt.Names()
	params := make([]ort.Value, 0, len(names))
	destroy := func() {
		for _, v := range params {
			v.Destroy()
		}
	}
	for _, name := range names {
		t := ckpt[name]
		value, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			destroy()
			return nil, fmt.Errorf("bind parameter %s: %w", name, err)
		}
		params = append(params, value)
	}

	inputs := append([]string{audioInputName, faceInputName}, names...)
	session, err := ort.NewDynamicAdvancedSession(opts.GraphPath, inputs, []string{outputName}, sessionOpts)
	if err != nil {
		destroy()
		return nil, fmt.Errorf("load graph %s: %w", opts.GraphPath, err)
	}
	return &onnxModel{session: session, params: params}, nil
}

func (m *onnxModel) Infer(ctx context.Context, faces, mels Tensor) (Tensor, error) {
	if err := ctx.Err(); err != nil {
		return Tensor{}, err
	}
	melValue, err := ort.NewTensor(ort.NewShape(mels.Shape...), mels.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("audio tensor: %w", err)
	}
	defer melValue.Destroy()
	faceValue, err := ort.NewTensor(ort.NewShape(faces.Shape...), faces.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("face tensor: %w", err)
	}
	defer faceValue.Destroy()

	inputs := append([]ort.Value{melValue, faceValue}, m.params...)
	outputs := []ort.Value{nil}
	if err := m.session.Run(inputs, outputs); err != nil {
		return Tensor{}, fmt.Errorf("run graph: %w", err)
	}
	defer outputs[0].Destroy()
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Tensor{}, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	shape := out.GetShape()
	return Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  append([]float32(nil), out.GetData()...),
	}, nil
}

// Close destroys the session and bound parameters.
func (m *onnxModel) Close() error {
	for _, v := range m.params {
		v.Destroy()
	}
	m.params = nil
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
