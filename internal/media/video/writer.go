package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// WriteArgs returns the ffmpeg arguments that encode raw RGBA frames from
// stdin into a silent video at outPath.
func WriteArgs(width, height int, fps float64, outPath string) []string {
	return ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", width, height),
		"r":       strconv.FormatFloat(fps, 'f', -1, 64),
	}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":     "mpeg4",
			"q:v":     1,
			"pix_fmt": "yuv420p",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

// MuxArgs returns the ffmpeg arguments that combine the speech track with the
// synthesized silent video. Only the first audio stream of the speech file and
// the first video stream of the synthesized file are mapped.
func MuxArgs(audioPath, videoPath, outPath string) []string {
	audio := ffmpeg.Input(audioPath).Get("a:0")
	video := ffmpeg.Input(videoPath).Get("v:0")
	return ffmpeg.Output([]*ffmpeg.Stream{audio, video}, outPath, ffmpeg.KwArgs{
		"strict": "-2",
		"q:v":    1,
	}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

// Writer encodes frames and muxes audio with ffmpeg.
type Writer struct {
	FFmpeg string
}

func (w Writer) binary() string {
	if strings.TrimSpace(w.FFmpeg) == "" {
		return "ffmpeg"
	}
	return w.FFmpeg
}

// WriteFrames encodes frames at fps into a silent video at outPath.
func (w Writer) WriteFrames(ctx context.Context, frames []*image.RGBA, fps float64, outPath string) error {
	if len(frames) == 0 {
		return errors.New("write frames: no frames")
	}
	bounds := frames[0].Bounds()
	cmd := exec.CommandContext(ctx, w.binary(), WriteArgs(bounds.Dx(), bounds.Dy(), fps, outPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("write frames: start ffmpeg: %w", err)
	}

	buffered := bufio.NewWriterSize(stdin, 1<<20)
	var writeErr error
	for i, frame := range frames {
		if frame.Bounds() != bounds {
			writeErr = fmt.Errorf("frame %d has bounds %v, want %v", i, frame.Bounds(), bounds)
			break
		}
		if _, err := buffered.Write(packedPix(frame)); err != nil {
			writeErr = fmt.Errorf("frame %d: %w", i, err)
			break
		}
	}
	if writeErr == nil {
		writeErr = buffered.Flush()
	}
	closeErr := stdin.Close()
	waitErr := cmd.Wait()
	switch {
	case writeErr != nil:
		return fmt.Errorf("write frames: %w: %s", writeErr, strings.TrimSpace(stderr.String()))
	case closeErr != nil:
		return fmt.Errorf("write frames: close stdin: %w", closeErr)
	case waitErr != nil:
		return fmt.Errorf("write frames: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Mux combines audioPath and the silent videoPath into outPath.
func (w Writer) Mux(ctx context.Context, audioPath, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, w.binary(), MuxArgs(audioPath, videoPath, outPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mux %s: %w: %s", outPath, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// packedPix returns the frame pixels without row padding.
func packedPix(img *image.RGBA) []byte {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	if img.Stride == rowLen && len(img.Pix) == rowLen*b.Dy() {
		return img.Pix
	}
	out := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[start:start+rowLen]...)
	}
	return out
}
