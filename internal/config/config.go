// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	VAT       VATConfig       `mapstructure:"vat"`
	SERP      SERPConfig      `mapstructure:"serp"`
	Hunt      HuntConfig      `mapstructure:"hunt"`
	Contacts  ContactsConfig  `mapstructure:"contacts"`
	LinkedIn  LinkedInConfig  `mapstructure:"linkedin"`
	Hunter    HunterConfig    `mapstructure:"hunter"`
	Snov      SnovConfig      `mapstructure:"snov"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig controls the operational HTTP API.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	AuthEnabled bool   `mapstructure:"auth_enabled"`
	APIKey      string `mapstructure:"api_key"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// RegistryConfig governs the Companies House stage.
type RegistryConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	BatchSize    int    `mapstructure:"batch_size"`
	PauseSeconds int    `mapstructure:"pause_seconds"`
}

// VATConfig governs the VAT lookup stage.
type VATConfig struct {
	SearchURL         string `mapstructure:"search_url"`
	ProxyURL          string `mapstructure:"proxy_url"`
	BatchSize         int    `mapstructure:"batch_size"`
	LockExpirySeconds int    `mapstructure:"lock_expiry_seconds"`
}

// SERPConfig holds ZenSERP access settings.
type SERPConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// HuntConfig governs website hunting and crawl ranking.
type HuntConfig struct {
	BatchSize          int  `mapstructure:"batch_size"`
	LockExpirySeconds  int  `mapstructure:"lock_expiry_seconds"`
	MaxTargetPages     int  `mapstructure:"max_target_pages"`
	MaxAdditionalPages int  `mapstructure:"max_additional_pages"`
	MaxConcurrentSites int  `mapstructure:"max_concurrent_sites"`
	DelaySeconds       int  `mapstructure:"delay_seconds"`
	HeadlessFallback   bool `mapstructure:"headless_fallback"`
}

// ContactsConfig governs contact extraction.
type ContactsConfig struct {
	BatchSize         int `mapstructure:"batch_size"`
	LockExpirySeconds int `mapstructure:"lock_expiry_seconds"`
	MaxPages          int `mapstructure:"max_pages"`
	IntervalSeconds   int `mapstructure:"interval_seconds"`
}

// LinkedInConfig governs LinkedIn discovery.
type LinkedInConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// HunterConfig holds Hunter.io access settings.
type HunterConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	BatchSize int    `mapstructure:"batch_size"`
}

// SnovConfig holds Snov.io access settings.
type SnovConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BatchSize    int    `mapstructure:"batch_size"`
}

// SchedulerConfig sets the default task cadence and lock expiry.
type SchedulerConfig struct {
	IntervalSeconds   int `mapstructure:"interval_seconds"`
	LockExpirySeconds int `mapstructure:"lock_expiry_seconds"`
}

// FromViper builds a Config from an initialized Viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Server.AuthEnabled && c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key must be set when auth is enabled")
	}
	if c.Registry.BatchSize <= 0 {
		return fmt.Errorf("registry.batch_size must be > 0")
	}
	if c.VAT.BatchSize <= 0 || c.Hunt.BatchSize <= 0 || c.Contacts.BatchSize <= 0 {
		return fmt.Errorf("batch sizes must be > 0")
	}
	if c.Hunt.MaxConcurrentSites <= 0 {
		return fmt.Errorf("hunt.max_concurrent_sites must be > 0")
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.interval_seconds must be > 0")
	}
	return nil
}

// HTTPTimeout converts the outbound timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// VATLockExpiry returns the VAT task lease duration.
func (c Config) VATLockExpiry() time.Duration {
	return secondsOr(c.VAT.LockExpirySeconds, c.Scheduler.LockExpirySeconds)
}

// HuntLockExpiry returns the hunting task lease duration.
func (c Config) HuntLockExpiry() time.Duration {
	return secondsOr(c.Hunt.LockExpirySeconds, c.Scheduler.LockExpirySeconds)
}

// ContactsLockExpiry returns the contact extraction lease duration.
func (c Config) ContactsLockExpiry() time.Duration {
	return secondsOr(c.Contacts.LockExpirySeconds, c.Scheduler.LockExpirySeconds)
}

// DefaultLockExpiry returns the lease duration for tasks without a
// dedicated setting.
func (c Config) DefaultLockExpiry() time.Duration {
	return secondsOr(c.Scheduler.LockExpirySeconds, 300)
}

// Interval returns the default scheduler cadence.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

// ContactsInterval returns the contact extraction cadence.
func (c Config) ContactsInterval() time.Duration {
	return secondsOr(c.Contacts.IntervalSeconds, c.Scheduler.IntervalSeconds)
}

func secondsOr(value, fallback int) time.Duration {
	if value > 0 {
		return time.Duration(value) * time.Second
	}
	return time.Duration(fallback) * time.Second
}
