// Package main hosts the lipsync CLI entrypoint and command graph.
//
// Commands resolve configuration once, then hand off to the internal
// packages: generate runs one job through the fallback chain, avatars lists
// the catalog, status reports dependencies and recent job counts, and jobs
// inspects persisted job records.
package main
