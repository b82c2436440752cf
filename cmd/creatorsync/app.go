package main

import (
	"fmt"
	"time"

	"creatorsync/internal/config"
	"creatorsync/internal/enrichment"
	"creatorsync/internal/ingest"
	"creatorsync/internal/marketplace"
	"creatorsync/internal/notifications"
	"creatorsync/internal/orderfeed"
	"creatorsync/internal/runs"
	"creatorsync/internal/snapshot"
	"creatorsync/internal/store"
)

// app holds the collaborators shared by run commands and the daemon.
type app struct {
	cfg         *config.Config
	store       *store.Store
	coordinator *runs.Coordinator
	redis       *runs.RedisLocker
}

func (c *commandContext) newApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}

	locks := []runs.Locker{runs.NewFileLocker(cfg.LockDir())}
	redisLock := runs.NewRedisLocker(cfg.Redis)
	if redisLock != nil {
		locks = append(locks, redisLock)
	}

	coord := runs.NewCoordinator(runs.Options{
		Ledger:     st,
		Locks:      locks,
		Notifier:   notifications.NewService(cfg, c.log()),
		TimeBudget: cfg.RunTimeBudget(),
		Logger:     c.log(),
	})
	return &app{cfg: cfg, store: st, coordinator: coord, redis: redisLock}, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (c *commandContext) syncJob(a *app, params ingest.Params) (runs.Job, error) {
	feed, err := orderfeed.New(orderfeed.Config{
		BaseURL:     a.cfg.OrderFeed.BaseURL,
		AccessToken: a.cfg.OrderFeed.AccessToken,
		Timeout:     time.Duration(a.cfg.OrderFeed.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("order feed: %w", err)
	}
	if params.PageSize <= 0 {
		params.PageSize = a.cfg.OrderFeed.PageSize
	}
	if params.MaxPages <= 0 {
		params.MaxPages = a.cfg.OrderFeed.MaxPages
	}
	ing := ingest.New(feed, a.store, a.cfg.Identity.DefaultCountryCode, c.log())
	return runs.SyncJob(ing, params), nil
}

func (c *commandContext) enrichmentJob(a *app, params enrichment.RunParams) (runs.Job, error) {
	client, err := marketplace.New(marketplace.Config{
		BaseURL:         a.cfg.Marketplace.BaseURL,
		AccessToken:     a.cfg.Marketplace.AccessToken,
		QuotaErrorCodes: a.cfg.Marketplace.QuotaErrorCodes,
		Timeout:         time.Duration(a.cfg.Marketplace.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("marketplace: %w", err)
	}
	quota := enrichment.NewQuota(a.store, enrichment.MarketplaceAPI, a.cfg.Marketplace.DailyQuota)
	scheduler := enrichment.NewScheduler(enrichment.SchedulerConfig{
		BatchSize:      a.cfg.Enrichment.BatchSize,
		StaleAfter:     a.cfg.StaleAfter(),
		RecentActivity: a.cfg.RecentActivity(),
	}, a.store, quota)
	runner := enrichment.NewRunner(enrichment.RunnerDeps{
		Scheduler: scheduler,
		Searcher:  client,
		Store:     a.store,
		Snapshots: snapshot.NewRecorder(a.store, c.log()),
		Quota:     quota,
		Pacer:     marketplace.NewPacer(a.cfg.MarketplaceMinInterval()),
		Source:    a.cfg.Enrichment.Source,
		Logger:    c.log(),
	})
	return runs.EnrichmentJob(runner, params), nil
}
