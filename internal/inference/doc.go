// Package inference wraps the lip-sync model behind an opaque Infer call.
//
// The model takes a face batch [B,6,H,W] (masked and reference crops stacked
// on the channel axis) and an audio batch [B,1,80,16] and returns predicted
// faces [B,3,H,W] in [0,1]. Cache holds the single process-wide model handle:
// it is loaded on first use, retried after a failed load, and serialized by a
// mutex plus an optional cross-process device lock.
//
// The ONNX Runtime backend is compiled with the onnx build tag; without it
// NewNativeModel returns ErrNativeUnavailable.
package inference
