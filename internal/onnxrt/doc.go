// Package onnxrt locates and initializes the ONNX Runtime shared library.
//
// The runtime binding is compiled only with the onnx build tag. Without it,
// Init reports ErrUnavailable and callers fall back to other backends.
package onnxrt
