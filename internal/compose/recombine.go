package compose

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"lipsync/internal/inference"
)

// Recombine pastes each predicted face into a copy of its source frame.
// pred is [B,3,S,S] in BGR order with values in [0,1]. Pixels outside the
// crop box are left as they were.
func Recombine(pred inference.Tensor, batch Batch) ([]*image.RGBA, error) {
	if err := pred.Validate(); err != nil {
		return nil, fmt.Errorf("recombine: %w", err)
	}
	if len(pred.Shape) != 4 || pred.Shape[1] != 3 || pred.Shape[2] != pred.Shape[3] {
		return nil, fmt.Errorf("recombine: prediction shape %v, want [B,3,S,S]", pred.Shape)
	}
	if pred.Batch() != batch.Size() {
		return nil, fmt.Errorf("recombine: %d predictions for %d frames", pred.Batch(), batch.Size())
	}
	s := int(pred.Shape[2])
	plane := s * s
	face := image.NewRGBA(image.Rect(0, 0, s, s))
	out := make([]*image.RGBA, batch.Size())
	for i, frame := range batch.Frames {
		base := i * 3 * plane
		for at := 0; at < plane; at++ {
			p := face.Pix[at*4 : at*4+4]
			p[0] = toByte(pred.Data[base+2*plane+at])
			p[1] = toByte(pred.Data[base+plane+at])
			p[2] = toByte(pred.Data[base+at])
			p[3] = 0xff
		}
		dst := image.NewRGBA(frame.Bounds())
		draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
		box := batch.Boxes[i]
		draw.BiLinear.Scale(dst, box, face, face.Bounds(), draw.Src, nil)
		out[i] = dst
	}
	return out, nil
}

// toByte scales a [0,1] value to a pixel, clamping and truncating.
func toByte(v float32) uint8 {
	scaled := v * 255
	switch {
	case scaled != scaled || scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	default:
		return uint8(scaled)
	}
}
