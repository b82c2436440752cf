package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"creatorsync/internal/daemon"
	"creatorsync/internal/enrichment"
	"creatorsync/internal/ingest"
	"creatorsync/internal/logging"
	"creatorsync/internal/runs"
	"creatorsync/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run order sync and enrichment on their configured intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.close()
			logger := ctx.log()

			execute := func(runType string, build func() (runs.Job, error)) daemon.Task {
				return func(runCtx context.Context) error {
					job, err := build()
					if err != nil {
						return err
					}
					summary, err := a.coordinator.Execute(runCtx, runType, nil, job)
					if err != nil {
						return err
					}
					if summary.Status == store.RunFailed {
						return fmt.Errorf("%s run failed: %w", runType, summary.Err)
					}
					return nil
				}
			}

			schedules := []daemon.Schedule{
				{
					Name:       runs.TypeSync,
					Interval:   time.Duration(a.cfg.Runs.SyncIntervalMinutes) * time.Minute,
					RunOnStart: runOnStart,
					Task: execute(runs.TypeSync, func() (runs.Job, error) {
						return ctx.syncJob(a, ingest.Params{})
					}),
				},
				{
					Name:       runs.TypeEnrichment,
					Interval:   time.Duration(a.cfg.Runs.EnrichIntervalMinutes) * time.Minute,
					RunOnStart: runOnStart,
					Task: execute(runs.TypeEnrichment, func() (runs.Job, error) {
						return ctx.enrichmentJob(a, enrichment.RunParams{})
					}),
				},
			}

			d, err := daemon.New(a.cfg.LockDir(), schedules, logger)
			if err != nil {
				return err
			}
			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			logger.Info("waiting for shutdown signal", logging.String("lock", d.Status().LockFilePath))
			<-cmd.Context().Done()
			d.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-now", true, "Trigger both run types immediately on start")
	return cmd
}
