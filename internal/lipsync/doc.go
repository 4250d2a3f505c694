// Package lipsync runs one generation job through an ordered list of
// strategies.
//
// Video avatars try native inference, then the external inference program,
// then passthrough of the unmodified source. Still images skip the native
// tier. The first strategy to succeed wins. Errors that services.IsFatal
// reports stop the chain immediately; other failures are logged and never
// returned when a later tier succeeds.
package lipsync
