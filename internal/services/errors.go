package services

import (
	"errors"
	"fmt"
	"strings"

	"lipsync/internal/jobs"
)

var (
	// ErrPrecondition marks a missing checkpoint, avatar, or audio file.
	ErrPrecondition = errors.New("precondition failed")
	// ErrDetection marks a frame where no face could be located.
	ErrDetection = errors.New("face detection failed")
	// ErrValidation marks audio or feature data that cannot be used.
	ErrValidation = errors.New("validation error")
	// ErrInference marks a failure inside the native model path.
	ErrInference     = errors.New("inference error")
	ErrExternalTool  = errors.New("external tool error")
	ErrTimeout       = errors.New("timeout")
	ErrPassthrough   = errors.New("passthrough failed")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must stop the fallback chain. Input problems
// (missing files, faceless frames, unusable audio) would fail identically on
// every tier.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPrecondition),
		errors.Is(err, ErrDetection),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrPassthrough):
		return true
	default:
		return false
	}
}

// FailureStatus maps a pipeline error to the job status that should be
// persisted after generation fails.
func FailureStatus(err error) jobs.Status {
	switch {
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrDetection), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return jobs.StatusRejected
	default:
		return jobs.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
