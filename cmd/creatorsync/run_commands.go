package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creatorsync/internal/enrichment"
	"creatorsync/internal/ingest"
	"creatorsync/internal/runs"
	"creatorsync/internal/store"
)

func newSyncOrdersCommand(ctx *commandContext) *cobra.Command {
	var pageSize, maxPages int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync-orders",
		Short: "Link or create creators from sample orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.close()

			job, err := ctx.syncJob(a, ingest.Params{PageSize: pageSize, MaxPages: maxPages})
			if err != nil {
				return err
			}
			params := map[string]any{"page_size": pageSize, "max_pages": maxPages}
			summary, err := a.coordinator.Execute(cmd.Context(), runs.TypeSync, params, job)
			if err != nil {
				return err
			}
			return reportSummary(cmd, summary, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Orders per page (defaults to order_feed.page_size)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to read (defaults to order_feed.max_pages)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var (
		brand       string
		batchSize   int
		staleBefore string
		skipAssets  bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Refresh metrics for the most stale creators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := parseDate(staleBefore)
			if err != nil {
				return err
			}
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.close()

			job, err := ctx.enrichmentJob(a, enrichment.RunParams{
				Brand:       brand,
				BatchSize:   batchSize,
				StaleBefore: cutoff,
				SkipAssets:  skipAssets,
			})
			if err != nil {
				return err
			}
			params := map[string]any{
				"brand":        brand,
				"batch_size":   batchSize,
				"stale_before": staleBefore,
				"skip_assets":  skipAssets,
			}
			summary, err := a.coordinator.Execute(cmd.Context(), runs.TypeEnrichment, params, job)
			if err != nil {
				return err
			}
			return reportSummary(cmd, summary, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "Brand label for logs and reports")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Creators per batch (defaults to enrichment.batch_size)")
	cmd.Flags().StringVar(&staleBefore, "stale-before", "", "Refresh creators last enriched before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&skipAssets, "skip-assets", false, "Do not store avatar URLs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(store.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t.UTC(), nil
}

type summaryJSON struct {
	RunID      string         `json:"run_id,omitempty"`
	Type       string         `json:"run_type"`
	Status     string         `json:"status"`
	StopReason string         `json:"stop_reason,omitempty"`
	Duplicate  bool           `json:"duplicate"`
	DurationMS int64          `json:"duration_ms"`
	Counters   map[string]int `json:"counters"`
	Error      string         `json:"error,omitempty"`
}

func reportSummary(cmd *cobra.Command, summary runs.Summary, jsonOutput bool) error {
	if jsonOutput {
		out := summaryJSON{
			RunID:      summary.RunID,
			Type:       summary.Type,
			Status:     string(summary.Status),
			StopReason: summary.StopReason,
			Duplicate:  summary.Duplicate,
			DurationMS: summary.Duration.Milliseconds(),
			Counters:   summary.Counters,
		}
		if summary.Duplicate {
			out.Status = "skipped"
		}
		if summary.Err != nil {
			out.Error = summary.Err.Error()
		}
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary, shouldColorize(cmd.OutOrStdout())))
	}
	if summary.Status == store.RunFailed {
		return fmt.Errorf("%s run failed: %w", summary.Type, summary.Err)
	}
	return nil
}

func renderSummary(summary runs.Summary, terminal bool) string {
	if summary.Duplicate {
		return fmt.Sprintf("A %s run is already in flight; nothing to do\n", summary.Type)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s): %s", summary.RunID, summary.Type, summary.Status)
	if summary.StopReason != "" {
		fmt.Fprintf(&b, " [%s]", summary.StopReason)
	}
	fmt.Fprintf(&b, " in %s\n", summary.Duration.Round(time.Millisecond))

	rows := make([][]string, 0, len(summary.Counters))
	for _, name := range sortedKeys(summary.Counters) {
		rows = append(rows, []string{name, fmt.Sprintf("%d", summary.Counters[name])})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"Counter", "Value"}, rows, []columnAlignment{alignLeft, alignRight}, terminal))
		b.WriteString("\n")
	}
	if summary.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", summary.Err)
	}
	return b.String()
}
