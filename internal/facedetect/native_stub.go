//go:build !onnx

package facedetect

// NativeAvailable reports that no native detector is compiled in.
func NativeAvailable() bool { return false }

// NewNativeDetector returns ErrNativeUnavailable when built without the onnx tag.
func NewNativeDetector(NativeOptions) (Detector, error) {
	return nil, ErrNativeUnavailable
}
