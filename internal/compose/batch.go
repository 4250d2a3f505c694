package compose

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"lipsync/internal/facedetect"
	"lipsync/internal/inference"
	"lipsync/internal/media/audio"
)

const (
	DefaultImageSize = 96
	DefaultBatchSize = 128
)

// Batch is one model call worth of index-aligned inputs.
type Batch struct {
	// Faces is [B,6,S,S]: masked then unmasked crop, channels in BGR order.
	Faces inference.Tensor
	// Mels is [B,1,80,W].
	Mels    inference.Tensor
	Frames  []*image.RGBA
	Boxes   []image.Rectangle
	Indices []int
}

// Size returns the number of items in the batch.
func (b Batch) Size() int { return len(b.Indices) }

// Composer builds batches.
type Composer struct {
	ImageSize int
	BatchSize int
}

func (c Composer) imageSize() int {
	if c.ImageSize <= 0 {
		return DefaultImageSize
	}
	return c.ImageSize
}

func (c Composer) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// FrameCount returns how many output frames the inputs produce.
func FrameCount(frames []*image.RGBA, windows []audio.Window) int {
	return audio.FrameCount(len(windows), len(frames))
}

// ForEach calls fn with every batch in frame order. Batches hold at most
// BatchSize items; the last one may be shorter. Item i pairs frames[i],
// windows[i] and crops[i].
func (c Composer) ForEach(frames []*image.RGBA, windows []audio.Window, crops []facedetect.Crop, fn func(Batch) error) error {
	n := FrameCount(frames, windows)
	if n == 0 {
		return errors.New("compose: no frames to batch")
	}
	if len(crops) < n {
		return fmt.Errorf("compose: %d crops for %d frames", len(crops), n)
	}
	size := c.batchSize()
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batch, err := c.build(frames[start:end], windows[start:end], crops[start:end], start)
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// BatchCount returns how many batches ForEach will emit.
func (c Composer) BatchCount(frames []*image.RGBA, windows []audio.Window) int {
	n := FrameCount(frames, windows)
	size := c.batchSize()
	return (n + size - 1) / size
}

func (c Composer) build(frames []*image.RGBA, windows []audio.Window, crops []facedetect.Crop, offset int) (Batch, error) {
	s := c.imageSize()
	b := len(frames)
	width := windows[0].Width()
	batch := Batch{
		Faces:   inference.NewTensor(int64(b), 6, int64(s), int64(s)),
		Mels:    inference.NewTensor(int64(b), 1, int64(len(windows[0].Data)), int64(width)),
		Frames:  frames,
		Boxes:   make([]image.Rectangle, b),
		Indices: make([]int, b),
	}
	plane := s * s
	resized := image.NewRGBA(image.Rect(0, 0, s, s))
	melStride := len(windows[0].Data) * width
	for i := range frames {
		crop := crops[i]
		if crop.Face == nil || crop.Box.Empty() {
			return Batch{}, fmt.Errorf("compose: frame %d has no face crop", offset+i)
		}
		if windows[i].Width() != width || len(windows[i].Data) != len(windows[0].Data) {
			return Batch{}, fmt.Errorf("compose: window %d has shape %dx%d, want %dx%d",
				offset+i, len(windows[i].Data), windows[i].Width(), len(windows[0].Data), width)
		}
		batch.Boxes[i] = crop.Box
		batch.Indices[i] = offset + i

		draw.BiLinear.Scale(resized, resized.Bounds(), crop.Face, crop.Face.Bounds(), draw.Src, nil)
		base := i * 6 * plane
		half := s / 2
		for y := 0; y < s; y++ {
			for x := 0; x < s; x++ {
				p := resized.Pix[y*resized.Stride+x*4:]
				blue := float32(p[2]) / 255
				green := float32(p[1]) / 255
				red := float32(p[0]) / 255
				at := y*s + x
				if y < half {
					batch.Faces.Data[base+at] = blue
					batch.Faces.Data[base+plane+at] = green
					batch.Faces.Data[base+2*plane+at] = red
				}
				batch.Faces.Data[base+3*plane+at] = blue
				batch.Faces.Data[base+4*plane+at] = green
				batch.Faces.Data[base+5*plane+at] = red
			}
		}

		melBase := i * melStride
		for m, row := range windows[i].Data {
			copy(batch.Mels.Data[melBase+m*width:melBase+(m+1)*width], row)
		}
	}
	return batch, nil
}
