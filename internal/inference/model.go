package inference

import (
	"context"
	"fmt"
)

// Model maps a face batch and an audio batch to predicted faces.
type Model interface {
	Infer(ctx context.Context, faces, mels Tensor) (Tensor, error)
}

// Loader constructs a Model. It is called lazily by Cache.
type Loader func(ctx context.Context) (Model, error)

// NativeOptions configures the ONNX Runtime backend.
type NativeOptions struct {
	GraphPath      string
	CheckpointPath string
	LibraryDir     string
	Device         string
}

// NativeLoader returns a Loader that builds the native model from opts.
func NativeLoader(opts NativeOptions) Loader {
	return func(context.Context) (Model, error) {
		return NewNativeModel(opts)
	}
}

// CheckShapes verifies a face and audio batch pair before inference.
func CheckShapes(faces, mels Tensor) error {
	if err := faces.Validate(); err != nil {
		return err
	}
	if err := mels.Validate(); err != nil {
		return err
	}
	if len(faces.Shape) != 4 || faces.Shape[1] != 6 {
		return fmtShape("faces", faces.Shape, "[B,6,H,W]")
	}
	if len(mels.Shape) != 4 || mels.Shape[1] != 1 {
		return fmtShape("mels", mels.Shape, "[B,1,80,T]")
	}
	if faces.Shape[0] != mels.Shape[0] {
		return fmtShape("mels", mels.Shape, "a batch matching faces")
	}
	return nil
}

func fmtShape(name string, shape []int64, want string) error {
	return fmt.Errorf("%s tensor has shape %v, want %s", name, shape, want)
}
