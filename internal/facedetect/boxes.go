package facedetect

import "image"

// bestBoxes picks the highest scoring candidate above threshold per frame and
// scales it to frame pixels.
func bestBoxes(scores, boxes []float32, frames []*image.RGBA, candidates int, threshold float32) []*image.Rectangle {
	out := make([]*image.Rectangle, len(frames))
	for b, frame := range frames {
		best := -1
		bestScore := threshold
		for c := 0; c < candidates; c++ {
			score := scores[(b*candidates+c)*2+1]
			if score >= bestScore {
				best = c
				bestScore = score
			}
		}
		if best < 0 {
			continue
		}
		bounds := frame.Bounds()
		w, h := float32(bounds.Dx()), float32(bounds.Dy())
		coords := boxes[(b*candidates+best)*4 : (b*candidates+best)*4+4]
		rect := image.Rect(
			bounds.Min.X+int(coords[0]*w),
			bounds.Min.Y+int(coords[1]*h),
			bounds.Min.X+int(coords[2]*w),
			bounds.Min.Y+int(coords[3]*h),
		)
		rect = Clamp(rect, bounds)
		if rect.Empty() {
			continue
		}
		out[b] = &rect
	}
	return out
}
