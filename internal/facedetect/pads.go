package facedetect

import (
	"fmt"
	"image"
)

// Pads expands a detected box before cropping, in pixels.
type Pads struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// DefaultPads extends the box below the chin so the jaw stays in frame.
var DefaultPads = Pads{Top: 0, Bottom: 10, Left: 0, Right: 0}

// PadsFromSlice builds Pads from a top, bottom, left, right list.
func PadsFromSlice(values []int) (Pads, error) {
	if len(values) != 4 {
		return Pads{}, fmt.Errorf("pads: expected 4 values (top bottom left right), got %d", len(values))
	}
	for _, v := range values {
		if v < 0 {
			return Pads{}, fmt.Errorf("pads: negative value %d", v)
		}
	}
	return Pads{Top: values[0], Bottom: values[1], Left: values[2], Right: values[3]}, nil
}

// Slice returns the pads as top, bottom, left, right.
func (p Pads) Slice() []int {
	return []int{p.Top, p.Bottom, p.Left, p.Right}
}

// Apply expands box by the pads and clamps the result to bounds.
func (p Pads) Apply(box, bounds image.Rectangle) image.Rectangle {
	expanded := image.Rect(
		box.Min.X-p.Left,
		box.Min.Y-p.Top,
		box.Max.X+p.Right,
		box.Max.Y+p.Bottom,
	)
	return Clamp(expanded, bounds)
}

// Clamp limits box to bounds. Clamping an already clamped box is a no-op.
func Clamp(box, bounds image.Rectangle) image.Rectangle {
	return box.Canon().Intersect(bounds)
}
