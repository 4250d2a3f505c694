//go:build !onnx

package onnxrt

// Available reports that no runtime binding is compiled in.
func Available() bool { return false }

// Init returns ErrUnavailable when built without the onnx tag.
func Init(string) error { return ErrUnavailable }
