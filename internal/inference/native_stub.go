//go:build !onnx

package inference

// NativeAvailable reports that no native backend is compiled in.
func NativeAvailable() bool { return false }

// NewNativeModel returns ErrNativeUnavailable when built without the onnx tag.
func NewNativeModel(NativeOptions) (Model, error) {
	return nil, ErrNativeUnavailable
}
