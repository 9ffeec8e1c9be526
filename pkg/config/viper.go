// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/leadtrail/")
	viper.AddConfigPath("$HOME/.leadtrail")

	// Providers. The noop variants keep the binary runnable without
	// external services on a development machine.
	viper.SetDefault("database.provider", "postgres")
	viper.SetDefault("database.postgres.dsn", "")
	viper.SetDefault("database.postgres.max_conns", 8)
	viper.SetDefault("locks.provider", "memory")
	viper.SetDefault("events.provider", "noop")
	viper.SetDefault("archive.provider", "noop")
	viper.SetDefault("archive.local.base_dir", "data/archive")

	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.auth_enabled", false)
	viper.SetDefault("server.api_key", "")
	viper.SetDefault("metrics.port", 8080)
	viper.SetDefault("logging.development", false)

	// Registry lookup.
	viper.SetDefault("registry.base_url", "https://api.company-information.service.gov.uk")
	viper.SetDefault("registry.api_key", "")
	viper.SetDefault("registry.batch_size", 100)
	viper.SetDefault("registry.pause_seconds", 2)

	// VAT lookup.
	viper.SetDefault("vat.search_url", "https://vat-lookup.co.uk/verify/search.php")
	viper.SetDefault("vat.proxy_url", "")
	viper.SetDefault("vat.batch_size", 5)
	viper.SetDefault("vat.lock_expiry_seconds", 120)

	// Website hunting.
	viper.SetDefault("serp.base_url", "https://app.zenserp.com/api/v2")
	viper.SetDefault("serp.api_key", "")
	viper.SetDefault("hunt.batch_size", 3)
	viper.SetDefault("hunt.lock_expiry_seconds", 600)
	viper.SetDefault("hunt.max_target_pages", 3)
	viper.SetDefault("hunt.max_additional_pages", 6)
	viper.SetDefault("hunt.max_concurrent_sites", 2)
	viper.SetDefault("hunt.delay_seconds", 1)
	viper.SetDefault("hunt.headless_fallback", false)

	// Contact extraction.
	viper.SetDefault("contacts.batch_size", 3)
	viper.SetDefault("contacts.lock_expiry_seconds", 600)
	viper.SetDefault("contacts.max_pages", 10)
	viper.SetDefault("contacts.interval_seconds", 5)

	// LinkedIn discovery, Hunter.io and Snov.io.
	viper.SetDefault("linkedin.batch_size", 10)
	viper.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	viper.SetDefault("hunter.api_key", "")
	viper.SetDefault("hunter.batch_size", 2)
	viper.SetDefault("snov.base_url", "https://api.snov.io/v1")
	viper.SetDefault("snov.client_id", "")
	viper.SetDefault("snov.client_secret", "")
	viper.SetDefault("snov.batch_size", 2)

	// Scheduler.
	viper.SetDefault("scheduler.interval_seconds", 10)
	viper.SetDefault("scheduler.lock_expiry_seconds", 300)

	viper.SetDefault("http.timeout_seconds", 30)
	viper.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	viper.SetEnvPrefix("LEADTRAIL") // e.g. LEADTRAIL_REGISTRY_API_KEY=...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults plus environment are enough.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
