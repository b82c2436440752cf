package testsupport

import (
	"path/filepath"
	"testing"

	"creatorsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.Driver = "sqlite"
	cfgVal.Marketplace.AccessToken = "test-token"
	cfgVal.Marketplace.MinIntervalMS = 0
	cfgVal.OrderFeed.AccessToken = "test-token"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMarketplaceURL points the marketplace client at a test server.
func WithMarketplaceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.BaseURL = url
	}
}

// WithOrderFeedURL points the order feed client at a test server.
func WithOrderFeedURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OrderFeed.BaseURL = url
	}
}

// WithDailyQuota overrides the marketplace daily quota.
func WithDailyQuota(quota int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.DailyQuota = quota
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
