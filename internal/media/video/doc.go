// Package video moves frames between media files and memory through ffmpeg.
//
// Frames are exchanged as raw RGBA over pipes; no per-frame image files are
// written. Writer produces a silent intermediate video that Mux later combines
// with the speech track.
package video
