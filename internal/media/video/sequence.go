package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"lipsync/internal/media/ffprobe"
)

// Sequence is an ordered list of decoded frames with their playback rate.
type Sequence struct {
	Frames []*image.RGBA
	FPS    float64
}

// Len returns the number of frames.
func (s Sequence) Len() int { return len(s.Frames) }

// Bounds returns the frame rectangle, or the zero rectangle for an empty sequence.
func (s Sequence) Bounds() image.Rectangle {
	if len(s.Frames) == 0 {
		return image.Rectangle{}
	}
	return s.Frames[0].Bounds()
}

var stillExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsStillImage reports whether path names a still-image avatar by extension.
func IsStillImage(path string) bool {
	_, ok := stillExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Reader decodes video files into memory.
type Reader struct {
	FFmpeg  string
	FFprobe string
	// DefaultFPS is used when the container does not report a usable rate.
	DefaultFPS float64
}

// ReadArgs returns the ffmpeg arguments that stream path as raw RGBA frames on stdout.
func ReadArgs(path string) []string {
	return ffmpeg.Input(path).
		Output("pipe:1", ffmpeg.KwArgs{
			"f":       "rawvideo",
			"pix_fmt": "rgba",
			"an":      "",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		GetArgs()
}

// Read decodes every frame of path. ffmpeg applies display rotation, so
// frames have the rotated size.
func (r Reader) Read(ctx context.Context, path string) (Sequence, error) {
	probe, err := ffprobe.Inspect(ctx, r.FFprobe, path)
	if err != nil {
		return Sequence{}, err
	}
	stream, ok := probe.VideoStream()
	width, height := stream.DisplaySize()
	if !ok || width <= 0 || height <= 0 {
		return Sequence{}, fmt.Errorf("read frames %s: no video stream", path)
	}
	fps := probe.FrameRate()
	if fps <= 0 {
		fps = r.DefaultFPS
	}
	if fps <= 0 {
		fps = 25
	}

	binary := r.FFmpeg
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, ReadArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Sequence{}, fmt.Errorf("read frames %s: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return Sequence{}, fmt.Errorf("read frames %s: start ffmpeg: %w", path, err)
	}
	frames, readErr := readRawFrames(bufio.NewReaderSize(stdout, 1<<20), width, height)
	waitErr := cmd.Wait()
	if readErr != nil {
		return Sequence{}, fmt.Errorf("read frames %s: %w", path, readErr)
	}
	if waitErr != nil {
		return Sequence{}, fmt.Errorf("read frames %s: %w: %s", path, waitErr, strings.TrimSpace(stderr.String()))
	}
	if len(frames) == 0 {
		return Sequence{}, fmt.Errorf("read frames %s: no frames decoded", path)
	}
	return Sequence{Frames: frames, FPS: fps}, nil
}

// readRawFrames splits a raw RGBA stream into frames. A trailing partial
// frame is an error.
func readRawFrames(r io.Reader, width, height int) ([]*image.RGBA, error) {
	size := width * height * 4
	var frames []*image.RGBA
	for {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		n, err := io.ReadFull(r, img.Pix[:size])
		if errors.Is(err, io.EOF) && n == 0 {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, img)
	}
}
