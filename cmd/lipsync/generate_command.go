package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lipsync/internal/avatars"
	"lipsync/internal/config"
	"lipsync/internal/lipsync"
)

type generateOutput struct {
	JobID    string `json:"job_id"`
	Output   string `json:"output"`
	Tier     string `json:"tier"`
	Degraded bool   `json:"degraded"`
	Attempts int    `json:"attempts"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var avatarID string
	var audioPath string
	var outputPath string
	var jobID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Lip-sync an avatar to a speech recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			avatarPath, err := avatars.Catalog{Dir: cfg.Paths.AvatarsDir}.Resolve(avatarID)
			if err != nil {
				return err
			}
			speech, err := config.ExpandPath(strings.TrimSpace(audioPath))
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			id := strings.TrimSpace(jobID)
			if id == "" {
				id = uuid.NewString()
			}
			out := strings.TrimSpace(outputPath)
			if out == "" {
				out = filepath.Join(cfg.Paths.OutputDir, id+"_lipsync.mp4")
			} else if out, err = config.ExpandPath(out); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildPipeline(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.pipeline.Generate(runCtx, lipsync.Request{
				JobID:      id,
				AvatarID:   avatarID,
				AvatarPath: avatarPath,
				AudioPath:  speech,
				OutputPath: out,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, generateOutput{
					JobID:    id,
					Output:   result.OutputPath,
					Tier:     string(result.Tier),
					Degraded: result.Degraded,
					Attempts: result.Attempts,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Job %s finished via %s tier after %d attempt(s)\n", id, result.Tier, result.Attempts)
			fmt.Fprintf(w, "Output: %s\n", result.OutputPath)
			if result.Degraded {
				fmt.Fprintln(w, "Warning: lip sync failed; the output is the unmodified avatar")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&avatarID, "avatar", "a", avatars.DefaultID, "Avatar ID from the avatars directory")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Speech recording to synchronize")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default <output_dir>/<job>_lipsync.mp4)")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job identifier (default random UUID)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}
