package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/lifecycle"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var archiveOnly bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune expired files from the working and archive directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			manager := lifecycle.NewManager(cfg, logger)
			out := cmd.OutOrStdout()

			if !archiveOnly {
				removed := manager.CleanupWorking()
				fmt.Fprintf(out, "Removed %d expired file(s) from working directories\n", removed)
			}
			removed := manager.CleanupArchive()
			fmt.Fprintf(out, "Removed %d expired file(s) from the archive\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&archiveOnly, "archive-only", false, "Only sweep the archive directory")
	return cmd
}
