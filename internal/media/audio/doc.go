// Package audio turns a speech track into the per-frame feature windows the
// lip-sync model consumes.
//
// Decode resamples any ffmpeg-readable input to 16 kHz mono. Melspectrogram
// computes an 80-bin log-mel spectrogram normalized to [-4, 4] at 80 steps per
// second, and Chunk slices it into one fixed-width window per video frame.
package audio
