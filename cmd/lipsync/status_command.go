package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lipsync/internal/config"
	"lipsync/internal/inference"
	"lipsync/internal/jobs"
	"lipsync/internal/onnxrt"
	"lipsync/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var warm bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report dependencies, backends, and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			colorize := shouldColorize(w)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines := renderSectionHeader("Dependencies", colorize)
			lines = append(lines, preflightLines(results, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Backends", colorize)...)
			lines = append(lines, backendLines(cfg, colorize)...)
			var warmErr error
			if warm {
				var line string
				line, warmErr = warmModelLine(cmd.Context(), cfg, ctx, colorize)
				lines = append(lines, line)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Jobs", colorize)...)
			lines = append(lines, jobLines(cmd.Context(), cfg, colorize)...)
			fmt.Fprintln(w, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.Join(fmt.Errorf("%d required check(s) failed", len(failed)), warmErr)
			}
			return warmErr
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", false, "Load the native model to verify it before the first job")
	return cmd
}

// warmModelLine loads the native model once and reports the outcome. A
// failed load is returned so the command exits non-zero.
func warmModelLine(ctx context.Context, cfg *config.Config, cc *commandContext, colorize bool) (string, error) {
	if !cfg.Pipeline.NativeEnabled || !nativeCompiled() {
		return renderStatusLine("Model", statusInfo, "skipped (native tier unavailable)", colorize), nil
	}
	logger, err := cc.ensureLogger()
	if err != nil {
		return renderStatusLine("Model", statusError, err.Error(), colorize), err
	}
	cache := newModelCache(cfg, logger)
	defer cache.Close()
	return renderWarm(ctx, cache, colorize)
}

func renderWarm(ctx context.Context, cache *inference.Cache, colorize bool) (string, error) {
	started := time.Now()
	if err := cache.Warm(ctx); err != nil {
		return renderStatusLine("Model", statusError, err.Error(), colorize), fmt.Errorf("warm model: %w", err)
	}
	return renderStatusLine("Model", statusOK, "loaded in "+time.Since(started).Round(time.Millisecond).String(), colorize), nil
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		switch {
		case !r.Passed:
			kind = statusError
		case strings.HasSuffix(r.Detail, "(optional)"):
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}

func backendLines(cfg *config.Config, colorize bool) []string {
	var lines []string
	switch {
	case !cfg.Pipeline.NativeEnabled:
		lines = append(lines, renderStatusLine("Native", statusInfo, "disabled", colorize))
	case !nativeCompiled():
		lines = append(lines, renderStatusLine("Native", statusWarn, "not compiled in (build with -tags onnx)", colorize))
	default:
		if lib, err := onnxrt.ResolveLibrary(cfg.Model.ORTLibraryDir); err != nil {
			lines = append(lines, renderStatusLine("Native", statusError, err.Error(), colorize))
		} else {
			lines = append(lines, renderStatusLine("Native", statusOK, fmt.Sprintf("%s on %s", lib, cfg.Model.Device), colorize))
		}
	}
	if cfg.External.Enabled {
		lines = append(lines, renderStatusLine("External", statusOK, cfg.External.Command+" "+cfg.External.Script, colorize))
	} else {
		lines = append(lines, renderStatusLine("External", statusInfo, "disabled", colorize))
	}
	lines = append(lines, renderStatusLine("Passthrough", statusOK, "always available", colorize))
	return lines
}

func jobLines(ctx context.Context, cfg *config.Config, colorize bool) []string {
	store, err := jobs.Open(cfg.Paths.JobsDB)
	if err != nil {
		return []string{renderStatusLine("Store", statusError, err.Error(), colorize)}
	}
	defer store.Close()
	summary, err := store.Summarize(ctx)
	if err != nil {
		return []string{renderStatusLine("Store", statusError, err.Error(), colorize)}
	}
	problemKind := statusOK
	if summary.Failed > 0 || summary.Degraded > 0 {
		problemKind = statusWarn
	}
	return []string{
		renderStatusLine("Total", statusInfo, fmt.Sprint(summary.Total), colorize),
		renderStatusLine("Active", statusInfo, fmt.Sprint(summary.Active), colorize),
		renderStatusLine("Completed", statusOK, fmt.Sprint(summary.Completed), colorize),
		renderStatusLine("Degraded", problemKind, fmt.Sprint(summary.Degraded), colorize),
		renderStatusLine("Rejected", statusInfo, fmt.Sprint(summary.Rejected), colorize),
		renderStatusLine("Failed", problemKind, fmt.Sprint(summary.Failed), colorize),
	}
}
