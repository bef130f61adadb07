package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over all configured images",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			runner, hist, err := ctx.newRunner(logger)
			if err != nil {
				return err
			}
			defer hist.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := runner.RunOnce(runCtx)
			if err != nil {
				return fmt.Errorf("sync run: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Total", "Uploaded", "Skipped", "Failed", "Duration"},
				[][]string{{
					summary.RunID,
					strconv.Itoa(summary.Total),
					strconv.Itoa(summary.Succeeded),
					strconv.Itoa(summary.Skipped),
					strconv.Itoa(summary.Failed),
					summary.Duration.Round(10 * time.Millisecond).String(),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
}
