// Package ffprobe wraps the ffprobe CLI to inspect media containers.
//
// The pipeline uses it to detect the source frame rate, which fixes how many
// spectrogram steps each video frame spans.
package ffprobe
