package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"creatorsync/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	t.Setenv("MARKETPLACE_ACCESS_TOKEN", "mk-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "creatorsync")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "creatorsync.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Marketplace.AccessToken != "mk-token" {
		t.Fatalf("expected marketplace token from env, got %q", cfg.Marketplace.AccessToken)
	}
	if cfg.OrderFeed.AccessToken != "mk-token" {
		t.Fatalf("expected order feed token to fall back to marketplace token, got %q", cfg.OrderFeed.AccessToken)
	}
	if cfg.StaleAfter() != 7*24*time.Hour {
		t.Fatalf("unexpected staleness window: %s", cfg.StaleAfter())
	}
	if cfg.RecentActivity() != 30*24*time.Hour {
		t.Fatalf("unexpected recent activity window: %s", cfg.RecentActivity())
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Store.Driver)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/data",
		},
		"marketplace": map[string]any{
			"access_token":      "  from-file  ",
			"min_interval_ms":   250,
			"daily_quota":       20,
			"quota_error_codes": []int{36009004},
		},
		"enrichment": map[string]any{
			"batch_size": 5,
		},
		"store": map[string]any{
			"driver": "PGX",
			"dsn":    "postgres://localhost/creators",
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "DEBUG",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Marketplace.AccessToken != "from-file" {
		t.Fatalf("expected trimmed token, got %q", cfg.Marketplace.AccessToken)
	}
	if cfg.MarketplaceMinInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected min interval: %s", cfg.MarketplaceMinInterval())
	}
	if cfg.Marketplace.DailyQuota != 20 || len(cfg.Marketplace.QuotaErrorCodes) != 1 {
		t.Fatalf("unexpected marketplace section: %+v", cfg.Marketplace)
	}
	if cfg.Enrichment.BatchSize != 5 {
		t.Fatalf("unexpected batch size: %d", cfg.Enrichment.BatchSize)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("expected driver alias to normalize to postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	os.Unsetenv("MARKETPLACE_ACCESS_TOKEN")
	t.Cleanup(func() { os.Unsetenv("MARKETPLACE_ACCESS_TOKEN") })

	envPath := filepath.Join(tempHome, "secrets.env")
	if err := os.WriteFile(envPath, []byte("MARKETPLACE_ACCESS_TOKEN=dotenv-token\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	configPath := filepath.Join(tempHome, "config.toml")
	content := "[paths]\nenv_file = \"" + envPath + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Marketplace.AccessToken != "dotenv-token" {
		t.Fatalf("expected token from env file, got %q", cfg.Marketplace.AccessToken)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"postgres without dsn", func(c *config.Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"bad url", func(c *config.Config) { c.Marketplace.BaseURL = "ftp://example.com" }, "marketplace.base_url"},
		{"negative quota", func(c *config.Config) { c.Marketplace.DailyQuota = -1 }, "daily_quota"},
		{"zero batch", func(c *config.Config) { c.Enrichment.BatchSize = 0 }, "batch_size"},
		{"bad country", func(c *config.Config) { c.Identity.DefaultCountryCode = "1a" }, "default_country_code"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Enrichment.BatchSize != 100 {
		t.Fatalf("unexpected sample batch size: %d", cfg.Enrichment.BatchSize)
	}
}
