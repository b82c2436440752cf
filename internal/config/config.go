package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	EnvFile string `toml:"env_file"`
}

// Store selects the persistence backend for creators, snapshots, and runs.
type Store struct {
	Driver string `toml:"driver"` // sqlite or postgres
	DSN    string `toml:"dsn"`    // postgres DSN; sqlite uses <data_dir>/creatorsync.db when empty
}

// Marketplace contains configuration for the marketplace creator search API.
type Marketplace struct {
	BaseURL         string `toml:"base_url"`
	AccessToken     string `toml:"access_token"`
	MinIntervalMS   int    `toml:"min_interval_ms"`
	DailyQuota      int    `toml:"daily_quota"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	QuotaErrorCodes []int  `toml:"quota_error_codes"`
}

// OrderFeed contains configuration for the paginated order search feed.
type OrderFeed struct {
	BaseURL        string `toml:"base_url"`
	AccessToken    string `toml:"access_token"`
	PageSize       int    `toml:"page_size"`
	MaxPages       int    `toml:"max_pages"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enrichment contains scheduler tunables.
type Enrichment struct {
	BatchSize          int    `toml:"batch_size"`
	StaleAfterDays     int    `toml:"stale_after_days"`
	RecentActivityDays int    `toml:"recent_activity_days"`
	Source             string `toml:"source"`
}

// Identity contains settings for phone and name normalization.
type Identity struct {
	DefaultCountryCode string `toml:"default_country_code"`
}

// Runs contains run ledger and daemon timing.
type Runs struct {
	TimeBudgetMinutes     int `toml:"time_budget_minutes"`
	SyncIntervalMinutes   int `toml:"sync_interval_minutes"`
	EnrichIntervalMinutes int `toml:"enrich_interval_minutes"`
}

// Redis configures the optional distributed run lock.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Notifications contains configuration for ntfy run reports.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for creatorsync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: sqlite or postgres backend
//   - Marketplace: creator search API, pacing, and daily quota
//   - OrderFeed: sample order search feed
//   - Enrichment: batch size and staleness windows
//   - Identity: phone normalization defaults
//   - Runs: time budget and daemon intervals
//   - Redis: optional distributed run lock
//   - Notifications: ntfy run reports
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Marketplace   Marketplace   `toml:"marketplace"`
	OrderFeed     OrderFeed     `toml:"order_feed"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Identity      Identity      `toml:"identity"`
	Runs          Runs          `toml:"runs"`
	Redis         Redis         `toml:"redis"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/creatorsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A dotenv file next to the working directory (or
// the one named by paths.env_file) is loaded before environment fallbacks are applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFile(cfg.Paths.EnvFile); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile populates unset environment variables from a dotenv file. A missing
// default file is not an error; a missing explicitly configured file is.
func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("creatorsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for run operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "creatorsync.db")
}

// LockDir returns the directory holding per-run-type lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// MarketplaceMinInterval returns the pacing delay enforced between marketplace calls.
func (c *Config) MarketplaceMinInterval() time.Duration {
	return time.Duration(c.Marketplace.MinIntervalMS) * time.Millisecond
}

// RunTimeBudget returns the outer time budget applied to a single run.
func (c *Config) RunTimeBudget() time.Duration {
	return time.Duration(c.Runs.TimeBudgetMinutes) * time.Minute
}

// StaleAfter returns the enrichment staleness window.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Enrichment.StaleAfterDays) * 24 * time.Hour
}

// RecentActivity returns the sample-activity window that boosts enrichment priority.
func (c *Config) RecentActivity() time.Duration {
	return time.Duration(c.Enrichment.RecentActivityDays) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
