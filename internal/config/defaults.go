package config

const (
	defaultDataDir                = "~/.local/share/creatorsync"
	defaultLogDir                 = "~/.local/share/creatorsync/logs"
	defaultStoreDriver            = "sqlite"
	defaultMarketplaceBaseURL     = "https://open-api.marketplace.example.com/affiliate/202406"
	defaultMarketplaceMinInterval = 1500
	defaultMarketplaceDailyQuota  = 1000
	defaultHTTPTimeoutSeconds     = 30
	defaultOrderFeedBaseURL       = "https://open-api.marketplace.example.com/order/202309"
	defaultOrderFeedPageSize      = 50
	defaultOrderFeedMaxPages      = 40
	defaultEnrichmentBatchSize    = 100
	defaultStaleAfterDays         = 7
	defaultRecentActivityDays     = 30
	defaultEnrichmentSource       = "marketplace_api"
	defaultCountryCode            = "1"
	defaultRunTimeBudgetMinutes   = 60
	defaultSyncIntervalMinutes    = 60
	defaultEnrichIntervalMinutes  = 360
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Marketplace: Marketplace{
			BaseURL:        defaultMarketplaceBaseURL,
			MinIntervalMS:  defaultMarketplaceMinInterval,
			DailyQuota:     defaultMarketplaceDailyQuota,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		OrderFeed: OrderFeed{
			BaseURL:        defaultOrderFeedBaseURL,
			PageSize:       defaultOrderFeedPageSize,
			MaxPages:       defaultOrderFeedMaxPages,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		Enrichment: Enrichment{
			BatchSize:          defaultEnrichmentBatchSize,
			StaleAfterDays:     defaultStaleAfterDays,
			RecentActivityDays: defaultRecentActivityDays,
			Source:             defaultEnrichmentSource,
		},
		Identity: Identity{
			DefaultCountryCode: defaultCountryCode,
		},
		Runs: Runs{
			TimeBudgetMinutes:     defaultRunTimeBudgetMinutes,
			SyncIntervalMinutes:   defaultSyncIntervalMinutes,
			EnrichIntervalMinutes: defaultEnrichIntervalMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStarted:     false,
			RunCompleted:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
