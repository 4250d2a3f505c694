// Package config loads, normalizes, and validates lipsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LIPSYNC_FFMPEG. The Config type centralizes every knob the CLI and the
// generation pipeline need, so model locations, batch sizes, and crop pads are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
