//go:build onnx

package onnxrt

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// Available reports that the runtime binding is compiled in.
func Available() bool { return true }

// Init loads the shared library and initializes the ONNX Runtime environment
// once per process. Later calls return the first outcome.
func Init(libraryLocation string) error {
	initOnce.Do(func() {
		path, err := ResolveLibrary(libraryLocation)
		if err != nil {
			initErr = err
			return
		}
		ort.SetSharedLibraryPath(path)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return fmt.Errorf("onnxrt: %w", initErr)
	}
	return nil
}

// SessionOptions returns options for device. "cuda" requires the CUDA
// execution provider; "auto" tries it and silently stays on CPU when it is
// missing. The caller destroys the returned options.
func SessionOptions(device string) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxrt: session options: %w", err)
	}
	if device == "cpu" {
		return opts, nil
	}
	cudaErr := appendCUDA(opts)
	if cudaErr != nil && device == "cuda" {
		opts.Destroy()
		return nil, fmt.Errorf("onnxrt: cuda provider: %w", cudaErr)
	}
	return opts, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()
	return opts.AppendExecutionProviderCUDA(cuda)
}
