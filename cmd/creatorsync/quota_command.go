package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"creatorsync/internal/enrichment"
)

type quotaJSON struct {
	API       string `json:"api"`
	Limit     int    `json:"daily_limit"`
	Used      int    `json:"used_today"`
	Remaining int    `json:"remaining_today"`
	History   []usageJSON `json:"history"`
}

type usageJSON struct {
	Day   string `json:"day"`
	API   string `json:"api"`
	Calls int    `json:"calls"`
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var days int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show marketplace quota usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			meter := enrichment.NewQuota(st, enrichment.MarketplaceAPI, cfg.Marketplace.DailyQuota)
			used, err := meter.Used(cmd.Context())
			if err != nil {
				return err
			}
			remaining, err := meter.Remaining(cmd.Context())
			if err != nil {
				return err
			}
			history, err := st.RecentUsage(cmd.Context(), days)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := quotaJSON{API: enrichment.MarketplaceAPI, Limit: meter.Limit(), Used: used, Remaining: remaining}
				if meter.Limit() <= 0 {
					out.Remaining = -1
				}
				for _, h := range history {
					out.History = append(out.History, usageJSON{Day: h.Day, API: h.API, Calls: h.Calls})
				}
				return writeJSON(cmd, out)
			}

			out := cmd.OutOrStdout()
			if meter.Limit() <= 0 {
				fmt.Fprintf(out, "Marketplace calls today: %d (no daily limit)\n", used)
			} else {
				fmt.Fprintf(out, "Marketplace calls today: %d of %d (%d remaining)\n", used, meter.Limit(), remaining)
			}
			if len(history) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(history))
			for _, h := range history {
				rows = append(rows, []string{h.Day, h.API, fmt.Sprintf("%d", h.Calls)})
			}
			fmt.Fprintln(out, renderTable([]string{"Day", "API", "Calls"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of usage rows to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
