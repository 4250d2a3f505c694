// Package facedetect finds the speaking face in every frame and crops it.
//
// Detection is all-or-nothing: a single frame without a face fails the whole
// job, since a gap would desynchronize the crop stream from the audio windows.
// Detector batches may run concurrently; results are always returned in frame
// order.
package facedetect
