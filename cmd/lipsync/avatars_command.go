package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lipsync/internal/avatars"
)

type avatarOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

func newAvatarsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "avatars",
		Short: "List avatars available for generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, err := avatars.Catalog{Dir: cfg.Paths.AvatarsDir}.List()
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]avatarOutput, 0, len(list))
				for _, a := range list {
					out = append(out, avatarOutput{ID: a.ID, Name: a.Name, Type: string(a.Kind), Path: a.Path})
				}
				return writeJSON(cmd, out)
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(w, "No avatars found in %s\n", cfg.Paths.AvatarsDir)
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, a := range list {
				rows = append(rows, []string{a.ID, a.Name, string(a.Kind), a.Path})
			}
			fmt.Fprintln(w, renderTable([]string{"ID", "Name", "Type", "Path"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print avatars as JSON")
	return cmd
}
