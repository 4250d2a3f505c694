package audio

import (
	"errors"
	"math"
	"testing"
)

func sine(freq float64, seconds float64, amp float32) Waveform {
	n := int(seconds * SampleRate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return Waveform{Samples: samples, SampleRate: SampleRate}
}

func TestMelspectrogramShapeAndRange(t *testing.T) {
	spec, err := Melspectrogram(sine(440, 1, 0.5))
	if err != nil {
		t.Fatalf("Melspectrogram: %v", err)
	}
	if spec.Len() != 1+SampleRate/HopLength {
		t.Fatalf("expected %d steps, got %d", 1+SampleRate/HopLength, spec.Len())
	}
	for step, row := range spec.Steps {
		if len(row) != NumMels {
			t.Fatalf("step %d: expected %d bins, got %d", step, NumMels, len(row))
		}
		for _, v := range row {
			if v < -maxAbsValue || v > maxAbsValue {
				t.Fatalf("value %v outside normalized range", v)
			}
		}
	}
}

func TestMelspectrogramPeakFollowsTone(t *testing.T) {
	spec, err := Melspectrogram(sine(1000, 1, 0.5))
	if err != nil {
		t.Fatalf("Melspectrogram: %v", err)
	}
	row := spec.Steps[spec.Len()/2]
	peak := 0
	for m := range row {
		if row[m] > row[peak] {
			peak = m
		}
	}

	minMel, maxMel := hzToMel(fMin), hzToMel(fMax)
	want, best := 0, math.Inf(1)
	for m := 0; m < NumMels; m++ {
		center := melToHz(minMel + (maxMel-minMel)*float64(m+1)/float64(NumMels+1))
		if d := math.Abs(center - 1000); d < best {
			want, best = m, d
		}
	}
	if peak < want-1 || peak > want+1 {
		t.Fatalf("expected peak near bin %d, got %d", want, peak)
	}
}

func TestMelspectrogramSilenceClampsToFloor(t *testing.T) {
	spec, err := Melspectrogram(Waveform{Samples: make([]float32, 4000), SampleRate: SampleRate})
	if err != nil {
		t.Fatalf("Melspectrogram: %v", err)
	}
	for _, v := range spec.Steps[0] {
		if v != -maxAbsValue {
			t.Fatalf("expected floor %v for silence, got %v", -maxAbsValue, v)
		}
	}
}

func TestMelspectrogramRejectsBadInput(t *testing.T) {
	if _, err := Melspectrogram(Waveform{Samples: []float32{0.1}, SampleRate: 8000}); err == nil {
		t.Fatal("expected sample rate error")
	}
	if _, err := Melspectrogram(Waveform{SampleRate: SampleRate}); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	spec := Spectrogram{Steps: [][]float32{{0, float32(math.NaN())}}}
	if err := spec.Validate(); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
}

func TestSlaneyMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{55, 440, 999, 1000, 4000, 7600} {
		if got := melToHz(hzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Fatalf("round trip %v -> %v", hz, got)
		}
	}
	filters := slaneyMelFilters(SampleRate, FFTSize, NumMels, fMin, fMax)
	if len(filters) != NumMels || len(filters[0]) != FFTSize/2+1 {
		t.Fatalf("unexpected filter bank shape %dx%d", len(filters), len(filters[0]))
	}
	for m, row := range filters {
		var sum float64
		for _, w := range row {
			if w < 0 {
				t.Fatalf("negative weight in filter %d", m)
			}
			sum += w
		}
		if sum == 0 {
			t.Fatalf("filter %d is empty", m)
		}
	}
}

func TestReflectPad(t *testing.T) {
	got := reflectPad([]float64{1, 2, 3, 4}, 2)
	want := []float64{3, 2, 1, 2, 3, 4, 3, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reflectPad = %v, want %v", got, want)
		}
	}
}
