package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"darkroom/internal/daemon"
	"darkroom/internal/logging"
	"darkroom/internal/preflight"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				if result.Passed {
					logger.Debug("preflight check passed",
						logging.String("check", result.Name),
						logging.String("detail", result.Detail))
					continue
				}
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "sync runs may fail until resolved"))
			}

			runner, hist, err := ctx.newRunner(logger)
			if err != nil {
				return err
			}
			defer hist.Close()

			d, err := daemon.New(cfg, runner, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "darkroom daemon running (interval %s, lock %s)\n",
				cfg.SyncInterval(), d.LockPath())

			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}
