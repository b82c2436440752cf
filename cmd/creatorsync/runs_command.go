package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	return runsCmd
}

type runJSON struct {
	ID         string         `json:"id"`
	Type       string         `json:"run_type"`
	Status     string         `json:"status"`
	StopReason string         `json:"stop_reason,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Counters   map[string]int `json:"counters,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var runType string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			list, err := st.ListRuns(cmd.Context(), runType, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := make([]runJSON, 0, len(list))
				for _, r := range list {
					out = append(out, runJSON{
						ID:         r.ID,
						Type:       r.Type,
						Status:     string(r.Status),
						StopReason: r.StopReason,
						StartedAt:  r.StartedAt,
						FinishedAt: r.FinishedAt,
						Counters:   r.Counters,
						Error:      r.ErrorMessage,
					})
				}
				return writeJSON(cmd, out)
			}

			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				duration := "-"
				if r.FinishedAt != nil {
					duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					r.ID,
					r.Type,
					string(r.Status),
					r.StopReason,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					duration,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Status", "Stop Reason", "Started", "Duration"},
				rows, nil, shouldColorize(cmd.OutOrStdout()),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&runType, "type", "", "Filter by run type (sync or enrichment)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
