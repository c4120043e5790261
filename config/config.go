package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Preference store types
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
	StoreRemote = "remote"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Log            LogConfig
	Recommendation RecommendationConfig
	Preferences    PreferencesConfig
	RateLimit      RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// RecommendationConfig holds ranking and cache tuning
type RecommendationConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MaxResults      int           `mapstructure:"max_results"`
	DiversityWindow int           `mapstructure:"diversity_window"`
	CreatorWindow   int           `mapstructure:"creator_window"` // 0 disables creator diversity
	CreatorPenalty  float64       `mapstructure:"creator_penalty"`
	ScoringWorkers  int           `mapstructure:"scoring_workers"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"` // idle lifetime of per-user session state
}

// PreferencesConfig holds preference store configuration
type PreferencesConfig struct {
	Store           string        `mapstructure:"store"` // "memory", "sqlite", "badger" or "remote"
	SQLitePath      string        `mapstructure:"sqlite_path"`
	BadgerPath      string        `mapstructure:"badger_path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	RemoteAPIKey    string        `mapstructure:"remote_api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int     `mapstructure:"per_ip"`   // requests per minute per client IP
	Docstore float64 `mapstructure:"docstore"` // requests per second to the remote store
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tastemap/")

	// Environment variable settings: server.port -> TASTEMAP_SERVER_PORT
	v.SetEnvPrefix("TASTEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
// Every key needs a default so that AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Recommendation defaults
	v.SetDefault("recommendation.cache_ttl", "5m")
	v.SetDefault("recommendation.max_results", 20)
	v.SetDefault("recommendation.diversity_window", 20)
	v.SetDefault("recommendation.creator_window", 0)
	v.SetDefault("recommendation.creator_penalty", 0.6)
	v.SetDefault("recommendation.scoring_workers", 4)
	v.SetDefault("recommendation.session_ttl", "30m")

	// Preference store defaults
	v.SetDefault("preferences.store", StoreMemory)
	v.SetDefault("preferences.sqlite_path", "data/preferences.db")
	v.SetDefault("preferences.badger_path", "data/preferences")
	v.SetDefault("preferences.remote_url", "")
	v.SetDefault("preferences.remote_api_key", "")
	v.SetDefault("preferences.timeout", "300ms")
	v.SetDefault("preferences.breaker_failures", 5)
	v.SetDefault("preferences.breaker_cooldown", "30s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.docstore", 50)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	rec := config.Recommendation
	if rec.CacheTTL <= 0 {
		return fmt.Errorf("recommendation cache TTL must be positive, got: %v", rec.CacheTTL)
	}
	if rec.MaxResults <= 0 {
		return fmt.Errorf("recommendation max results must be positive, got: %d", rec.MaxResults)
	}
	if rec.DiversityWindow <= 0 {
		return fmt.Errorf("diversity window must be positive, got: %d", rec.DiversityWindow)
	}
	if rec.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got: %v", rec.SessionTTL)
	}
	if rec.CreatorWindow < 0 {
		return fmt.Errorf("creator window must not be negative, got: %d", rec.CreatorWindow)
	}
	if rec.CreatorPenalty <= 0 || rec.CreatorPenalty > 1 {
		return fmt.Errorf("creator penalty must be in (0, 1], got: %v", rec.CreatorPenalty)
	}

	prefs := config.Preferences
	switch prefs.Store {
	case StoreMemory:
	case StoreSQLite:
		if prefs.SQLitePath == "" {
			return fmt.Errorf("SQLite path is required when preference store is 'sqlite'")
		}
	case StoreBadger:
		if prefs.BadgerPath == "" {
			return fmt.Errorf("Badger path is required when preference store is 'badger'")
		}
	case StoreRemote:
		if prefs.RemoteURL == "" {
			return fmt.Errorf("remote URL is required when preference store is 'remote' (set TASTEMAP_PREFERENCES_REMOTE_URL)")
		}
	default:
		return fmt.Errorf("preference store must be one of memory, sqlite, badger, remote, got: %s", prefs.Store)
	}
	if prefs.Timeout <= 0 {
		return fmt.Errorf("preference timeout must be positive, got: %v", prefs.Timeout)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
