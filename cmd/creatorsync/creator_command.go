package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creatorsync/internal/creator"
	"creatorsync/internal/store"
)

func newCreatorCommand(ctx *commandContext) *cobra.Command {
	creatorCmd := &cobra.Command{
		Use:   "creator",
		Short: "Inspect creators",
	}
	creatorCmd.AddCommand(newCreatorShowCommand(ctx))
	return creatorCmd
}

type snapshotJSON struct {
	Date          string `json:"date"`
	Source        string `json:"source"`
	FollowerCount int64  `json:"follower_count"`
	GMVCents      int64  `json:"gmv_cents"`
	VideoGMVCents int64  `json:"video_gmv_cents"`
	AvgVideoViews int64  `json:"avg_video_views"`
}

type creatorJSON struct {
	ID               int64          `json:"id"`
	Handle           string         `json:"handle,omitempty"`
	ExternalUserID   string         `json:"external_user_id,omitempty"`
	Name             string         `json:"name,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	PhoneVerified    bool           `json:"phone_verified"`
	FollowerCount    int64          `json:"follower_count"`
	GMVCents         int64          `json:"gmv_cents"`
	LastSampleAt     *time.Time     `json:"last_sample_at,omitempty"`
	LastEnrichedAt   *time.Time     `json:"last_enriched_at,omitempty"`
	EnrichmentSource string         `json:"enrichment_source,omitempty"`
	Snapshots        []snapshotJSON `json:"snapshots"`
}

func newCreatorShowCommand(ctx *commandContext) *cobra.Command {
	var byExternalID bool
	var history int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <handle>",
		Short: "Show a creator and recent snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[0])
			var c *creator.Creator
			if byExternalID {
				c, err = st.GetByExternalUserID(cmd.Context(), key)
			} else {
				c, err = st.GetByHandle(cmd.Context(), key)
			}
			if err != nil {
				return err
			}
			if c == nil {
				return errors.New("creator not found")
			}
			snaps, err := st.ListSnapshots(cmd.Context(), c.ID, history)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, toCreatorJSON(c, snaps))
			}
			out := cmd.OutOrStdout()
			terminal := shouldColorize(out)
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, creatorRows(c), nil, terminal))
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No snapshots recorded")
				return nil
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []string{
					s.Date, s.Source,
					fmt.Sprintf("%d", s.FollowerCount),
					formatCents(s.GMVCents),
					formatCents(s.VideoGMVCents),
					fmt.Sprintf("%d", s.AvgVideoViews),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Source", "Followers", "GMV", "Video GMV", "Avg Views"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				terminal,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&byExternalID, "external-id", false, "Treat the argument as an external user id")
	cmd.Flags().IntVar(&history, "history", 14, "Number of snapshots to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func creatorRows(c *creator.Creator) [][]string {
	rows := [][]string{
		{"ID", fmt.Sprintf("%d", c.ID)},
		{"Handle", c.Handle},
		{"External user", c.ExternalUserID},
		{"Name", c.DisplayName()},
		{"Phone", c.Phone},
		{"Phone verified", yesNo(c.PhoneVerified)},
		{"Followers", fmt.Sprintf("%d", c.FollowerCount)},
		{"GMV", formatCents(c.GMVCents)},
		{"Last sample", formatOptionalTime(c.LastSampleAt)},
		{"Last enriched", formatOptionalTime(c.LastEnrichedAt)},
		{"Source", c.EnrichmentSource},
	}
	return rows
}

func toCreatorJSON(c *creator.Creator, snaps []store.Snapshot) creatorJSON {
	out := creatorJSON{
		ID:               c.ID,
		Handle:           c.Handle,
		ExternalUserID:   c.ExternalUserID,
		Name:             c.DisplayName(),
		Phone:            c.Phone,
		PhoneVerified:    c.PhoneVerified,
		FollowerCount:    c.FollowerCount,
		GMVCents:         c.GMVCents,
		LastSampleAt:     c.LastSampleAt,
		LastEnrichedAt:   c.LastEnrichedAt,
		EnrichmentSource: c.EnrichmentSource,
		Snapshots:        make([]snapshotJSON, 0, len(snaps)),
	}
	for _, s := range snaps {
		out.Snapshots = append(out.Snapshots, snapshotJSON{
			Date:          s.Date,
			Source:        s.Source,
			FollowerCount: s.FollowerCount,
			GMVCents:      s.GMVCents,
			VideoGMVCents: s.VideoGMVCents,
			AvgVideoViews: s.AvgVideoViews,
		})
	}
	return out
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
