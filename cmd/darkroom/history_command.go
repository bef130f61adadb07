package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				type jsonRun struct {
					ID        string `json:"id"`
					StartedAt string `json:"started_at"`
					Finished  bool   `json:"finished"`
					Total     int    `json:"total"`
					Succeeded int    `json:"succeeded"`
					Skipped   int    `json:"skipped"`
					Failed    int    `json:"failed"`
					Duration  string `json:"duration,omitempty"`
				}
				out := make([]jsonRun, 0, len(runs))
				for _, run := range runs {
					jr := jsonRun{
						ID:        run.ID,
						StartedAt: run.StartedAt.Format(time.RFC3339),
						Finished:  run.Finished,
						Total:     run.Total,
						Succeeded: run.Succeeded,
						Skipped:   run.Skipped,
						Failed:    run.Failed,
					}
					if run.Finished {
						jr.Duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
					}
					out = append(out, jr)
				}
				return writeJSON(cmd, map[string]any{"runs": out})
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := "running"
				duration := ""
				if run.Finished {
					status = "finished"
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					status,
					strconv.Itoa(run.Total),
					strconv.Itoa(run.Succeeded),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
					duration,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Status", "Total", "Uploaded", "Skipped", "Failed", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit runs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-image outcomes for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ItemsForRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				type jsonItem struct {
					Name     string `json:"name"`
					URL      string `json:"url"`
					Status   string `json:"status"`
					Detail   string `json:"detail,omitempty"`
					Hash     string `json:"hash,omitempty"`
					Duration string `json:"duration"`
				}
				out := make([]jsonItem, 0, len(records))
				for _, rec := range records {
					out = append(out, jsonItem{
						Name:     rec.Name,
						URL:      rec.URL,
						Status:   string(rec.Status),
						Detail:   rec.Detail,
						Hash:     rec.Hash,
						Duration: rec.Duration.Round(time.Millisecond).String(),
					})
				}
				return writeJSON(cmd, map[string]any{"run": args[0], "items": out})
			}
			if len(records) == 0 {
				return fmt.Errorf("no items recorded for run %s", args[0])
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Name,
					string(rec.Status),
					rec.Duration.Round(time.Millisecond).String(),
					rec.Detail,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Image", "Status", "Duration", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit items as JSON")
	return showCmd
}
