package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lipsync/internal/config"
	"lipsync/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect generation job records",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsPruneCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				list, err := store.List(cmd.Context(), limit, statuses...)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(w, "No jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, job := range list {
					rows = append(rows, []string{
						job.ID,
						string(job.Status),
						fallback(job.Tier, "-"),
						strconv.Itoa(job.Attempts),
						fallback(job.AvatarID, "-"),
						job.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(w, renderTable([]string{"ID", "Status", "Tier", "Attempts", "Avatar", "Created"}, rows, 3))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum jobs to show (0 for all)")
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				job, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				w := cmd.OutOrStdout()
				fields := [][2]string{
					{"ID", job.ID},
					{"Status", string(job.Status)},
					{"Tier", fallback(job.Tier, "-")},
					{"Attempts", strconv.Itoa(job.Attempts)},
					{"Avatar", fallback(job.AvatarID, "-")},
					{"Avatar path", job.AvatarPath},
					{"Audio", job.AudioPath},
					{"Output", fallback(job.OutputPath, "-")},
					{"Created", job.CreatedAt.Local().Format(time.DateTime)},
				}
				if job.FinishedAt != nil {
					fields = append(fields, [2]string{"Duration", job.Duration().Round(time.Millisecond).String()})
				}
				if job.ErrorMessage != "" {
					label := "Error"
					if job.Status == jobs.StatusDegraded {
						label = "Note"
					}
					fields = append(fields, [2]string{label, job.ErrorMessage})
				}
				for _, f := range fields {
					fmt.Fprintf(w, "%-12s %s\n", f[0]+":", f[1])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished job records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				removed, err := store.ClearFinished(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished job(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Only remove jobs finished before this age")
	return cmd
}

func parseStatuses(values []string) ([]jobs.Status, error) {
	known := []jobs.Status{
		jobs.StatusPending, jobs.StatusRunning, jobs.StatusCompleted,
		jobs.StatusDegraded, jobs.StatusRejected, jobs.StatusFailed,
	}
	var out []jobs.Status
	for _, v := range values {
		status := jobs.Status(strings.ToLower(strings.TrimSpace(v)))
		if !slices.Contains(known, status) {
			return nil, fmt.Errorf("unknown job status %q", v)
		}
		out = append(out, status)
	}
	return out, nil
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
