package compose

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"lipsync/internal/facedetect"
	"lipsync/internal/inference"
	"lipsync/internal/media/audio"
)

func fixture(n int) ([]*image.RGBA, []audio.Window, []facedetect.Crop) {
	frames := make([]*image.RGBA, n)
	windows := make([]audio.Window, n)
	crops := make([]facedetect.Crop, n)
	for i := 0; i < n; i++ {
		frame := image.NewRGBA(image.Rect(0, 0, 40, 30))
		for y := 0; y < 30; y++ {
			for x := 0; x < 40; x++ {
				frame.SetRGBA(x, y, color.RGBA{R: uint8(i * 3), G: uint8(x * 5), B: uint8(y * 7), A: 255})
			}
		}
		frames[i] = frame
		box := image.Rect(5, 4, 29, 28)
		face := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
		for y := 0; y < box.Dy(); y++ {
			for x := 0; x < box.Dx(); x++ {
				face.SetRGBA(x, y, frame.RGBAAt(box.Min.X+x, box.Min.Y+y))
			}
		}
		crops[i] = facedetect.Crop{Index: i, Box: box, Face: face}
		data := make([][]float32, audio.NumMels)
		for m := range data {
			data[m] = make([]float32, 16)
			for t := range data[m] {
				data[m][t] = float32(i) + float32(m)/100 + float32(t)/10000
			}
		}
		windows[i] = audio.Window{Index: i, Start: i * 3, Data: data}
	}
	return frames, windows, crops
}

func collect(t *testing.T, c Composer, frames []*image.RGBA, windows []audio.Window, crops []facedetect.Crop) []Batch {
	t.Helper()
	var batches []Batch
	if err := c.ForEach(frames, windows, crops, func(b Batch) error {
		batches = append(batches, b)
		return nil
	}); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	return batches
}

func TestForEachBatchesInFrameOrder(t *testing.T) {
	frames, windows, crops := fixture(11)
	c := Composer{ImageSize: 8, BatchSize: 4}
	batches := collect(t, c, frames, windows, crops)
	if len(batches) != 3 || c.BatchCount(frames, windows) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[2].Size() != 3 {
		t.Fatalf("short final batch has %d items, want 3", batches[2].Size())
	}
	var indices []int
	for _, b := range batches {
		indices = append(indices, b.Indices...)
		if b.Faces.Batch() != b.Size() || b.Mels.Batch() != b.Size() || len(b.Frames) != b.Size() || len(b.Boxes) != b.Size() {
			t.Fatalf("batch fields not index aligned")
		}
		if !slices.Equal(b.Faces.Shape[1:], []int64{6, 8, 8}) || !slices.Equal(b.Mels.Shape[1:], []int64{1, 80, 16}) {
			t.Fatalf("unexpected shapes %v %v", b.Faces.Shape, b.Mels.Shape)
		}
	}
	if !slices.Equal(indices, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Fatalf("unexpected index order %v", indices)
	}
	if batches[1].Frames[0] != frames[4] {
		t.Fatal("frame pairing broken")
	}
}

func TestMelLayoutPairsWindowWithFrame(t *testing.T) {
	frames, windows, crops := fixture(5)
	batches := collect(t, Composer{ImageSize: 8, BatchSize: 2}, frames, windows, crops)
	last := batches[2]
	// index [b=0][0][m=7][t=3] of the final batch is window 4
	got := last.Mels.Data[7*16+3]
	want := windows[4].Data[7][3]
	if got != want {
		t.Fatalf("mel value %v, want %v", got, want)
	}
}

func TestMaskedLowerHalfIsZeroInEveryPosition(t *testing.T) {
	frames, windows, crops := fixture(7)
	const s = 8
	batches := collect(t, Composer{ImageSize: s, BatchSize: 3}, frames, windows, crops)
	plane := s * s
	for bi, b := range batches {
		for item := 0; item < b.Size(); item++ {
			base := item * 6 * plane
			for c := 0; c < 3; c++ {
				for y := s / 2; y < s; y++ {
					for x := 0; x < s; x++ {
						if v := b.Faces.Data[base+c*plane+y*s+x]; v != 0 {
							t.Fatalf("batch %d item %d channel %d (%d,%d) = %v, want 0", bi, item, c, x, y, v)
						}
					}
				}
			}
			// Blue grows with y in the fixture, so the unmasked lower half is non-zero.
			if b.Faces.Data[base+3*plane+(s-1)*s] == 0 {
				t.Fatalf("unmasked lower half unexpectedly zero")
			}
			for c := 0; c < 3; c++ {
				if b.Faces.Data[base+c*plane+s+1] != b.Faces.Data[base+(c+3)*plane+s+1] {
					t.Fatalf("upper half differs between masked and unmasked copies")
				}
			}
		}
	}
}

func TestChannelsAreBGRAndScaled(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	face := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			face.SetRGBA(x, y, color.RGBA{R: 255, G: 51, B: 0, A: 255})
		}
	}
	crops := []facedetect.Crop{{Box: image.Rect(0, 0, 4, 4), Face: face}}
	_, windows, _ := fixture(1)
	batches := collect(t, Composer{ImageSize: 4, BatchSize: 1}, []*image.RGBA{frame}, windows, crops)
	data := batches[0].Faces.Data
	plane := 16
	if data[3*plane] != 0 || data[4*plane] != 0.2 || data[5*plane] != 1 {
		t.Fatalf("expected B,G,R = 0,0.2,1 got %v,%v,%v", data[3*plane], data[4*plane], data[5*plane])
	}
}

func TestForEachIsDeterministic(t *testing.T) {
	frames, windows, crops := fixture(6)
	c := Composer{ImageSize: 12, BatchSize: 4}
	first := collect(t, c, frames, windows, crops)
	second := collect(t, c, frames, windows, crops)
	for i := range first {
		if !slices.Equal(first[i].Faces.Data, second[i].Faces.Data) || !slices.Equal(first[i].Mels.Data, second[i].Mels.Data) {
			t.Fatalf("batch %d differs between runs", i)
		}
	}
}

func TestForEachTruncatesToShorterInput(t *testing.T) {
	frames, windows, crops := fixture(6)
	batches := collect(t, Composer{ImageSize: 8, BatchSize: 128}, frames, windows[:4], crops)
	if batches[0].Size() != 4 {
		t.Fatalf("expected 4 items, got %d", batches[0].Size())
	}
	batches = collect(t, Composer{ImageSize: 8, BatchSize: 128}, frames[:2], windows, crops)
	if batches[0].Size() != 2 {
		t.Fatalf("expected 2 items, got %d", batches[0].Size())
	}
}

func TestForEachErrors(t *testing.T) {
	frames, windows, crops := fixture(3)
	noop := func(Batch) error { return nil }
	if err := (Composer{}).ForEach(nil, windows, crops, noop); err == nil {
		t.Fatal("expected error for no frames")
	}
	if err := (Composer{}).ForEach(frames, windows, crops[:1], noop); err == nil {
		t.Fatal("expected error for missing crops")
	}
	stop := errors.New("stop")
	if err := (Composer{BatchSize: 1}).ForEach(frames, windows, crops, func(Batch) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestRecombineLeavesOutsidePixelsUntouched(t *testing.T) {
	frames, windows, crops := fixture(2)
	batches := collect(t, Composer{ImageSize: 8, BatchSize: 2}, frames, windows, crops)
	pred := inference.NewTensor(2, 3, 8, 8)
	plane := 64
	for b := 0; b < 2; b++ {
		for at := 0; at < plane; at++ {
			pred.Data[b*3*plane+at] = 1           // blue
			pred.Data[b*3*plane+plane+at] = 0.5   // green
			pred.Data[b*3*plane+2*plane+at] = 1.7 // red, clamped
		}
	}
	out, err := Recombine(pred, batches[0])
	if err != nil {
		t.Fatalf("Recombine: %v", err)
	}
	box := crops[0].Box
	for i, frame := range out {
		if frame == frames[i] {
			t.Fatal("Recombine must not modify the source frame in place")
		}
		for y := 0; y < 30; y++ {
			for x := 0; x < 40; x++ {
				got := frame.RGBAAt(x, y)
				if image.Pt(x, y).In(box) {
					if got != (color.RGBA{R: 255, G: 127, B: 255, A: 255}) {
						t.Fatalf("frame %d inside pixel (%d,%d) = %+v", i, x, y, got)
					}
					continue
				}
				if want := frames[i].RGBAAt(x, y); got != want {
					t.Fatalf("frame %d outside pixel (%d,%d) changed: %+v -> %+v", i, x, y, want, got)
				}
			}
		}
	}
}

func TestRecombineRejectsMismatch(t *testing.T) {
	frames, windows, crops := fixture(2)
	batches := collect(t, Composer{ImageSize: 8, BatchSize: 2}, frames, windows, crops)
	if _, err := Recombine(inference.NewTensor(1, 3, 8, 8), batches[0]); err == nil {
		t.Fatal("expected batch size mismatch error")
	}
	if _, err := Recombine(inference.NewTensor(2, 6, 8, 8), batches[0]); err == nil {
		t.Fatal("expected channel error")
	}
}

func TestToByte(t *testing.T) {
	cases := map[float32]uint8{-1: 0, 0: 0, 0.5: 127, 1: 255, 3: 255}
	for in, want := range cases {
		if got := toByte(in); got != want {
			t.Errorf("toByte(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestChangingOneWindowOnlyAffectsItsFrame(t *testing.T) {
	frames, windows, crops := fixture(9)
	c := Composer{ImageSize: 16, BatchSize: 4}
	before := collect(t, c, frames, windows, crops)

	changed := slices.Clone(windows)
	data := make([][]float32, audio.NumMels)
	for m := range data {
		data[m] = make([]float32, 16)
		for i := range data[m] {
			data[m][i] = -3
		}
	}
	changed[6] = audio.Window{Index: 6, Data: data}
	after := collect(t, c, frames, changed, crops)

	per := audio.NumMels * 16
	for b := range before {
		if !slices.Equal(before[b].Faces.Data, after[b].Faces.Data) {
			t.Fatalf("batch %d faces changed", b)
		}
		for k, idx := range before[b].Indices {
			same := slices.Equal(before[b].Mels.Data[k*per:(k+1)*per], after[b].Mels.Data[k*per:(k+1)*per])
			if idx == 6 && same {
				t.Fatal("window 6 change did not reach frame 6")
			}
			if idx != 6 && !same {
				t.Fatalf("frame %d affected by window 6", idx)
			}
		}
	}
}
