package audio

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Feature extraction parameters. StepsPerSecond follows from SampleRate/HopLength.
const (
	NumMels        = 80
	FFTSize        = 800
	HopLength      = 200
	WindowLength   = 800
	StepsPerSecond = SampleRate / HopLength
	fMin           = 55.0
	fMax           = 7600.0
	preemphasis    = 0.97
	refLevelDB     = 20.0
	minLevelDB     = -100.0
	maxAbsValue    = 4.0
)

// Spectrogram is a normalized log-mel spectrogram stored time-major:
// Steps[t][m] is mel bin m at time step t.
type Spectrogram struct {
	Steps [][]float32
}

// Len returns the number of time steps.
func (s Spectrogram) Len() int { return len(s.Steps) }

// Validate rejects spectrograms containing NaN or Inf.
func (s Spectrogram) Validate() error {
	for t, step := range s.Steps {
		for m, v := range step {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: step %d bin %d", ErrNonFinite, t, m)
			}
		}
	}
	return nil
}

var (
	melBasisOnce sync.Once
	melBasis     [][]float64
	hannOnce     sync.Once
	hannWindow   []float64
)

// Melspectrogram computes the normalized log-mel spectrogram of w. The
// waveform must already be at SampleRate.
func Melspectrogram(w Waveform) (Spectrogram, error) {
	if w.SampleRate != SampleRate {
		return Spectrogram{}, fmt.Errorf("melspectrogram: sample rate %d, want %d", w.SampleRate, SampleRate)
	}
	if len(w.Samples) == 0 {
		return Spectrogram{}, fmt.Errorf("%w: no samples", ErrTooShort)
	}

	emphasized := applyPreemphasis(w.Samples)
	padded := reflectPad(emphasized, FFTSize/2)
	numSteps := 1 + (len(padded)-FFTSize)/HopLength

	melBasisOnce.Do(func() { melBasis = slaneyMelFilters(SampleRate, FFTSize, NumMels, fMin, fMax) })
	hannOnce.Do(func() { hannWindow = periodicHann(WindowLength) })

	fft := fourier.NewFFT(FFTSize)
	frame := make([]float64, FFTSize)
	coeffs := make([]complex128, FFTSize/2+1)
	magnitude := make([]float64, FFTSize/2+1)
	minLevel := math.Pow(10, minLevelDB/20)

	steps := make([][]float32, numSteps)
	for t := 0; t < numSteps; t++ {
		offset := t * HopLength
		for i := range frame {
			frame[i] = padded[offset+i] * hannWindow[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			magnitude[k] = math.Hypot(real(c), imag(c))
		}
		row := make([]float32, NumMels)
		for m, filter := range melBasis {
			var energy float64
			for k, weight := range filter {
				if weight != 0 {
					energy += weight * magnitude[k]
				}
			}
			db := 20*math.Log10(math.Max(minLevel, energy)) - refLevelDB
			row[m] = float32(normalize(db))
		}
		steps[t] = row
	}

	spec := Spectrogram{Steps: steps}
	if err := spec.Validate(); err != nil {
		return Spectrogram{}, err
	}
	return spec, nil
}

func normalize(db float64) float64 {
	v := 2*maxAbsValue*((db-minLevelDB)/-minLevelDB) - maxAbsValue
	return math.Max(-maxAbsValue, math.Min(maxAbsValue, v))
}

// applyPreemphasis computes y[n] = x[n] - k*x[n-1].
func applyPreemphasis(x []float32) []float64 {
	y := make([]float64, len(x))
	prev := 0.0
	for i, s := range x {
		v := float64(s)
		y[i] = v - preemphasis*prev
		prev = v
	}
	return y
}

// reflectPad mirrors pad samples on each side without repeating the edge sample.
// Inputs shorter than pad+1 are mirrored repeatedly.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	copy(out[pad:], x)
	if n == 1 {
		for i := 0; i < pad; i++ {
			out[i] = x[0]
			out[pad+n+i] = x[0]
		}
		return out
	}
	period := 2 * (n - 1)
	reflect := func(idx int) float64 {
		idx %= period
		if idx < 0 {
			idx += period
		}
		if idx >= n {
			idx = period - idx
		}
		return x[idx]
	}
	for i := 0; i < pad; i++ {
		out[pad-1-i] = reflect(i + 1)
		out[pad+n+i] = reflect(n - 2 - i)
	}
	return out
}

func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

const (
	melFSP       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(f float64) float64 {
	if f >= melMinLogHz {
		return melMinLogMel + math.Log(f/melMinLogHz)/melLogStep
	}
	return f / melFSP
}

func melToHz(m float64) float64 {
	if m >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(m-melMinLogMel))
	}
	return melFSP * m
}

// slaneyMelFilters builds area-normalized triangular filters on the Slaney
// mel scale. The result is nMels rows of nFFT/2+1 weights.
func slaneyMelFilters(sr, nFFT, nMels int, fmin, fmax float64) [][]float64 {
	bins := nFFT/2 + 1
	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sr) / float64(nFFT)
	}

	minMel, maxMel := hzToMel(fmin), hzToMel(fmax)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = melToHz(minMel + (maxMel-minMel)*float64(i)/float64(nMels+1))
	}

	weights := make([][]float64, nMels)
	for i := 0; i < nMels; i++ {
		row := make([]float64, bins)
		lowerWidth := melF[i+1] - melF[i]
		upperWidth := melF[i+2] - melF[i+1]
		enorm := 2 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / lowerWidth
			upper := (melF[i+2] - f) / upperWidth
			if v := math.Min(lower, upper); v > 0 {
				row[k] = v * enorm
			}
		}
		weights[i] = row
	}
	return weights
}
