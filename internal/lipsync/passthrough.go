package lipsync

import (
	"context"

	"lipsync/internal/fileutil"
	"lipsync/internal/media/video"
	"lipsync/internal/services"
)

// PassthroughStrategy copies the avatar source to the output unchanged.
type PassthroughStrategy struct{}

// Tier implements Strategy.
func (PassthroughStrategy) Tier() Tier { return TierPassthrough }

// Run implements Strategy. The copy lands at the requested output path even
// when the avatar is a still image; SourceMedia says which it is.
func (PassthroughStrategy) Run(_ context.Context, req Request) (Result, error) {
	if err := fileutil.CopyFileVerified(req.AvatarPath, req.OutputPath); err != nil {
		return Result{}, services.Wrap(services.ErrPassthrough, string(TierPassthrough), "copy avatar", "", err)
	}
	return Result{
		OutputPath:  req.OutputPath,
		Tier:        TierPassthrough,
		Degraded:    true,
		SourceMedia: sourceMedia(req.AvatarPath),
	}, nil
}

func sourceMedia(avatarPath string) string {
	if video.IsStillImage(avatarPath) {
		return "image"
	}
	return "video"
}
