// Package deps reports on the external binaries and model files lipsync needs
// and picks the ffmpeg binary to run.
package deps
