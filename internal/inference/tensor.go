package inference

import (
	"errors"
	"fmt"
	"math"
)

// ErrNativeUnavailable indicates the in-process backend is not compiled in.
var ErrNativeUnavailable = errors.New("inference: native backend not available (build without -tags onnx)")

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int64) Tensor {
	return Tensor{Shape: append([]int64(nil), shape...), Data: make([]float32, elements(shape))}
}

// Len returns the element count implied by Shape.
func (t Tensor) Len() int { return elements(t.Shape) }

// Validate checks that Data matches Shape.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return errors.New("tensor has no shape")
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("tensor shape %v has non-positive dimension", t.Shape)
		}
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("tensor shape %v wants %d values, have %d", t.Shape, t.Len(), len(t.Data))
	}
	return nil
}

// CheckFinite returns an error naming the first NaN or Inf value.
func (t Tensor) CheckFinite() error {
	for i, v := range t.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("tensor value %d is not finite", i)
		}
	}
	return nil
}

// Batch returns the leading dimension, or zero for a shapeless tensor.
func (t Tensor) Batch() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return int(t.Shape[0])
}

func elements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return int(n)
}
