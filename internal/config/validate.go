package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateMarketplace(); err != nil {
		return err
	}
	if err := c.validateOrderFeed(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required when store.driver is postgres")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q", c.Store.Driver)
	}
}

func (c *Config) validateMarketplace() error {
	if err := validateURL("marketplace.base_url", c.Marketplace.BaseURL); err != nil {
		return err
	}
	if c.Marketplace.DailyQuota < 0 {
		return errors.New("marketplace.daily_quota must be zero (unlimited) or positive")
	}
	return nil
}

func (c *Config) validateOrderFeed() error {
	if err := validateURL("order_feed.base_url", c.OrderFeed.BaseURL); err != nil {
		return err
	}
	if c.OrderFeed.MaxPages < 0 {
		return errors.New("order_feed.max_pages must be zero (unbounded) or positive")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.BatchSize <= 0 {
		return errors.New("enrichment.batch_size must be positive")
	}
	return nil
}

func (c *Config) validateIdentity() error {
	code := c.Identity.DefaultCountryCode
	if len(code) > 3 {
		return fmt.Errorf("identity.default_country_code: %q is too long", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("identity.default_country_code: %q must be digits", code)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https", field)
	}
	return nil
}
