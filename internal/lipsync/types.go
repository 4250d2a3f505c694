package lipsync

import "context"

// Tier names a strategy in the fallback chain.
type Tier string

const (
	TierNative      Tier = "native"
	TierExternal    Tier = "external"
	TierPassthrough Tier = "passthrough"
)

// Request describes one generation job.
type Request struct {
	JobID      string
	AvatarID   string
	AvatarPath string
	AudioPath  string
	OutputPath string
	// WorkDir is the job-scoped scratch directory. Pipeline sets it.
	WorkDir string
}

// Result reports where the output landed and which tier produced it.
type Result struct {
	OutputPath string
	Tier       Tier
	// Degraded is true when the output is the unmodified avatar source.
	Degraded bool
	// SourceMedia is "image" or "video" for a degraded result, naming what
	// the output file actually holds.
	SourceMedia string
	// Attempts counts strategies tried, including the successful one.
	Attempts int
}

// Strategy is one tier of the fallback chain.
type Strategy interface {
	Tier() Tier
	Run(ctx context.Context, req Request) (Result, error)
}
