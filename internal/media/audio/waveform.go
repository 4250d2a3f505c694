package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SampleRate is the rate every waveform is resampled to before feature extraction.
const SampleRate = 16000

var (
	// ErrSilent is returned for audio whose peak amplitude is zero.
	ErrSilent = errors.New("audio is silent")
	// ErrNonFinite is returned when samples or features contain NaN or Inf.
	ErrNonFinite = errors.New("audio contains non-finite values")
	// ErrTooShort is returned when the audio cannot fill a single window.
	ErrTooShort = errors.New("audio too short")
)

// Waveform is mono PCM scaled to [-1, 1].
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Validate rejects empty, silent, or non-finite waveforms.
func (w Waveform) Validate() error {
	if len(w.Samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrTooShort)
	}
	var peak float64
	for _, s := range w.Samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return ErrSilent
	}
	return nil
}

// DecodeArgs returns the ffmpeg arguments that convert path to 16-bit
// little-endian mono PCM at SampleRate on stdout.
func DecodeArgs(path string) []string {
	return ffmpeg.Input(path).
		Output("pipe:1", ffmpeg.KwArgs{
			"f":      "s16le",
			"acodec": "pcm_s16le",
			"ac":     1,
			"ar":     SampleRate,
			"vn":     "",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		GetArgs()
}

// Decode runs ffmpeg to convert any supported audio or video file into a
// Waveform. No intermediate file is written.
func Decode(ctx context.Context, ffmpegBinary, path string) (Waveform, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, DecodeArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Waveform{}, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return FromPCM16(out), nil
}

// Decoder decodes audio files with a fixed ffmpeg binary.
type Decoder struct {
	FFmpeg string
}

// Decode converts path into a Waveform.
func (d Decoder) Decode(ctx context.Context, path string) (Waveform, error) {
	return Decode(ctx, d.FFmpeg, path)
}

// FromPCM16 converts little-endian signed 16-bit mono samples to a Waveform.
func FromPCM16(data []byte) Waveform {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768
	}
	return Waveform{Samples: samples, SampleRate: SampleRate}
}
