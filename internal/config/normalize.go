package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeMarketplace()
	c.normalizeOrderFeed()
	c.normalizeEnrichment()
	c.normalizeIdentity()
	c.normalizeRuns()
	c.normalizeRedis()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite", "sqlite3":
		c.Store.Driver = "sqlite"
	case "postgresql", "pgx":
		c.Store.Driver = "postgres"
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("CREATORSYNC_DATABASE_URL"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeMarketplace() {
	c.Marketplace.BaseURL = strings.TrimSpace(c.Marketplace.BaseURL)
	if c.Marketplace.BaseURL == "" {
		c.Marketplace.BaseURL = defaultMarketplaceBaseURL
	}
	c.Marketplace.AccessToken = strings.TrimSpace(c.Marketplace.AccessToken)
	if c.Marketplace.AccessToken == "" {
		if value, ok := os.LookupEnv("MARKETPLACE_ACCESS_TOKEN"); ok {
			c.Marketplace.AccessToken = strings.TrimSpace(value)
		}
	}
	if c.Marketplace.MinIntervalMS < 0 {
		c.Marketplace.MinIntervalMS = 0
	}
	if c.Marketplace.TimeoutSeconds <= 0 {
		c.Marketplace.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeOrderFeed() {
	c.OrderFeed.BaseURL = strings.TrimSpace(c.OrderFeed.BaseURL)
	if c.OrderFeed.BaseURL == "" {
		c.OrderFeed.BaseURL = defaultOrderFeedBaseURL
	}
	c.OrderFeed.AccessToken = strings.TrimSpace(c.OrderFeed.AccessToken)
	if c.OrderFeed.AccessToken == "" {
		if value, ok := os.LookupEnv("ORDER_FEED_ACCESS_TOKEN"); ok {
			c.OrderFeed.AccessToken = strings.TrimSpace(value)
		} else {
			// The order feed and the marketplace API usually share one shop token.
			c.OrderFeed.AccessToken = c.Marketplace.AccessToken
		}
	}
	if c.OrderFeed.PageSize <= 0 {
		c.OrderFeed.PageSize = defaultOrderFeedPageSize
	}
	if c.OrderFeed.TimeoutSeconds <= 0 {
		c.OrderFeed.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.Source = strings.TrimSpace(c.Enrichment.Source)
	if c.Enrichment.Source == "" {
		c.Enrichment.Source = defaultEnrichmentSource
	}
	if c.Enrichment.StaleAfterDays <= 0 {
		c.Enrichment.StaleAfterDays = defaultStaleAfterDays
	}
	if c.Enrichment.RecentActivityDays <= 0 {
		c.Enrichment.RecentActivityDays = defaultRecentActivityDays
	}
}

func (c *Config) normalizeIdentity() {
	code := strings.TrimSpace(c.Identity.DefaultCountryCode)
	code = strings.TrimPrefix(code, "+")
	if code == "" {
		code = defaultCountryCode
	}
	c.Identity.DefaultCountryCode = code
}

func (c *Config) normalizeRuns() {
	if c.Runs.TimeBudgetMinutes <= 0 {
		c.Runs.TimeBudgetMinutes = defaultRunTimeBudgetMinutes
	}
	if c.Runs.SyncIntervalMinutes <= 0 {
		c.Runs.SyncIntervalMinutes = defaultSyncIntervalMinutes
	}
	if c.Runs.EnrichIntervalMinutes <= 0 {
		c.Runs.EnrichIntervalMinutes = defaultEnrichIntervalMinutes
	}
}

func (c *Config) normalizeRedis() {
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Redis.Password == "" {
		if value, ok := os.LookupEnv("CREATORSYNC_REDIS_PASSWORD"); ok {
			c.Redis.Password = value
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
