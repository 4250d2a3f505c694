package lipsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lipsync/internal/fileutil"
	"lipsync/internal/jobs"
	"lipsync/internal/logging"
	"lipsync/internal/media/video"
	"lipsync/internal/observe"
	"lipsync/internal/services"
)

// JobRecorder persists job lifecycle transitions. *jobs.Store implements it.
type JobRecorder interface {
	Create(ctx context.Context, job *jobs.Job) error
	MarkRunning(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, status jobs.Status, tier, outputPath string, attempts int, errMsg string) error
}

// Pipeline orchestrates one job across the fallback chain. Nil strategies
// are skipped.
type Pipeline struct {
	Native      Strategy
	External    Strategy
	Passthrough Strategy

	CheckpointPath string
	// TempDir holds one scratch directory per job.
	TempDir string

	Jobs    JobRecorder
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Chain returns the strategies tried for avatarPath, in order.
func (p *Pipeline) Chain(avatarPath string) []Strategy {
	var chain []Strategy
	if !video.IsStillImage(avatarPath) && p.Native != nil {
		chain = append(chain, p.Native)
	}
	if p.External != nil {
		chain = append(chain, p.External)
	}
	if p.Passthrough != nil {
		chain = append(chain, p.Passthrough)
	}
	return chain
}

// Generate runs req through the chain and returns the first success.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		req.JobID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, req.JobID)
	logger := logging.WithContext(ctx, p.Logger)
	started := time.Now()

	if p.Jobs != nil {
		job := &jobs.Job{
			ID:         req.JobID,
			AvatarID:   req.AvatarID,
			AvatarPath: req.AvatarPath,
			AudioPath:  req.AudioPath,
			OutputPath: req.OutputPath,
		}
		if err := p.Jobs.Create(ctx, job); err != nil {
			return Result{}, fmt.Errorf("persist job: %w", err)
		}
	}

	if err := p.checkPreconditions(req); err != nil {
		p.finish(ctx, logger, req, Result{}, err)
		return Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		wrapped := services.Wrap(services.ErrConfiguration, "setup", "create output dir", "", err)
		p.finish(ctx, logger, req, Result{}, wrapped)
		return Result{}, wrapped
	}
	workDir, err := p.scratchDir(req.JobID)
	if err != nil {
		wrapped := services.Wrap(services.ErrConfiguration, "setup", "create scratch dir", "", err)
		p.finish(ctx, logger, req, Result{}, wrapped)
		return Result{}, wrapped
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove scratch dir", logging.String("path", workDir), logging.Error(err))
		}
	}()
	req.WorkDir = workDir

	if p.Jobs != nil {
		if err := p.Jobs.MarkRunning(ctx, req.JobID); err != nil {
			logger.Warn("failed to persist running state", logging.Error(err))
		}
	}
	logger.Info("generation started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("avatar", req.AvatarPath),
		logging.String("audio", req.AudioPath),
	)

	result, err := p.runChain(ctx, logger, req)
	p.finish(ctx, logger, req, result, err)
	if err != nil {
		return Result{}, err
	}
	logger.Info("generation completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String(logging.FieldTier, string(result.Tier)),
		logging.Bool("degraded", result.Degraded),
		logging.Int("attempts", result.Attempts),
		logging.String("output", result.OutputPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (p *Pipeline) runChain(ctx context.Context, logger *slog.Logger, req Request) (Result, error) {
	chain := p.Chain(req.AvatarPath)
	if len(chain) == 0 {
		return Result{}, services.Wrap(services.ErrConfiguration, "setup", "build chain", "no strategies configured", nil)
	}
	var lastErr error
	for i, strategy := range chain {
		tier := strategy.Tier()
		tierCtx := services.WithStage(ctx, string(tier))
		tierLogger := logger.With(logging.String(logging.FieldTier, string(tier)))
		tierLogger.Debug("trying tier", logging.Int("attempt", i+1))

		started := time.Now()
		result, err := strategy.Run(tierCtx, req)
		p.Metrics.RecordStage(ctx, "tier_"+string(tier), started)
		if err == nil {
			result.Attempts = i + 1
			result.Degraded = result.Degraded || tier == TierPassthrough
			if result.Tier == "" {
				result.Tier = tier
			}
			return result, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Attempts: i + 1}, fmt.Errorf("generation cancelled: %w", errors.Join(ctxErr, err))
		}
		if services.IsFatal(err) {
			return Result{Attempts: i + 1}, err
		}
		next := "none"
		if i+1 < len(chain) {
			next = string(chain[i+1].Tier())
		}
		logging.WarnWithContext(tierLogger, "tier failed; falling back", "tier_fallback",
			logging.String("next_tier", next),
			logging.String(logging.FieldErrorHint, "inspect the tier error; later tiers may degrade output"),
			logging.String(logging.FieldImpact, "output produced by a lower tier"),
			logging.Error(err),
		)
	}
	return Result{Attempts: len(chain)}, lastErr
}

func (p *Pipeline) checkPreconditions(req Request) error {
	inputs := []struct {
		label string
		path  string
	}{
		{"checkpoint", p.CheckpointPath},
		{"avatar", req.AvatarPath},
		{"audio", req.AudioPath},
	}
	for _, in := range inputs {
		if strings.TrimSpace(in.path) == "" {
			return services.Wrap(services.ErrPrecondition, "precondition", "check inputs", in.label+" path is empty", nil)
		}
		exists, err := fileutil.FileExists(in.path)
		if err != nil {
			return services.Wrap(services.ErrPrecondition, "precondition", "check inputs", in.label, err)
		}
		if !exists {
			return services.Wrap(services.ErrPrecondition, "precondition", "check inputs", fmt.Sprintf("%s not found: %s", in.label, in.path), nil)
		}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrPrecondition, "precondition", "check inputs", "output path is empty", nil)
	}
	return nil
}

func (p *Pipeline) scratchDir(jobID string) (string, error) {
	base := p.TempDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, "job-"+jobID+"-")
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, req Request, result Result, err error) {
	status := jobs.StatusCompleted
	outcome := "completed"
	message := ""
	switch {
	case err != nil:
		status = services.FailureStatus(err)
		outcome = string(status)
		message = err.Error()
		logging.ErrorWithContext(logger, "generation failed", "job_failure",
			logging.String("resolved_status", string(status)),
			logging.Error(err),
		)
	case result.Degraded:
		status = jobs.StatusDegraded
		outcome = "degraded"
		message = "output is the unmodified avatar"
		if result.SourceMedia != "" {
			message += " (" + result.SourceMedia + ")"
		}
	}
	p.Metrics.RecordJob(ctx, string(result.Tier), outcome)
	if p.Jobs == nil {
		return
	}
	// The caller's context may already be cancelled; the record must still land.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.Jobs.Finish(persistCtx, req.JobID, status, string(result.Tier), result.OutputPath, result.Attempts, message); err != nil {
		logger.Warn("failed to persist job result", logging.Error(err))
	}
}
