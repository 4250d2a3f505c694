package audio

import (
	"errors"
	"fmt"
	"math"
)

// Window is one fixed-width slice of the spectrogram aligned to a video frame.
// Data is mel-major: Data[m][t] for m < NumMels and t < width.
type Window struct {
	Index int
	Start int
	Data  [][]float32
}

// Width returns the number of time steps in the window.
func (w Window) Width() int {
	if len(w.Data) == 0 {
		return 0
	}
	return len(w.Data[0])
}

// Chunk slices spec into one window per video frame at fps. Window i starts
// at floor(i*StepsPerSecond/fps). The first window that would overrun the end
// is replaced by the final width steps and chunking stops, so the last window
// may overlap its predecessor.
func Chunk(spec Spectrogram, fps float64, width int) ([]Window, error) {
	if width <= 0 {
		return nil, errors.New("chunk: window width must be positive")
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("chunk: invalid fps %v", fps)
	}
	total := spec.Len()
	if total < width {
		return nil, fmt.Errorf("%w: %d spectrogram steps, need at least %d", ErrTooShort, total, width)
	}

	stepsPerFrame := float64(StepsPerSecond) / fps
	var windows []Window
	for i := 0; ; i++ {
		start := int(float64(i) * stepsPerFrame)
		last := start+width > total
		if last {
			start = total - width
		}
		windows = append(windows, Window{Index: i, Start: start, Data: slice(spec, start, width)})
		if last {
			break
		}
	}
	return windows, nil
}

// FrameCount returns how many output frames a job produces: one per window,
// capped by the number of source frames.
func FrameCount(windows, frames int) int {
	return min(windows, frames)
}

func slice(spec Spectrogram, start, width int) [][]float32 {
	data := make([][]float32, NumMels)
	for m := range data {
		row := make([]float32, width)
		for t := 0; t < width; t++ {
			row[t] = spec.Steps[start+t][m]
		}
		data[m] = row
	}
	return data
}
