package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config maps the whole application configuration. The `mapstructure` tags
// are used by Viper to bind keys from the config file (or environment) to
// the Go fields.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Sweeper     SweeperConfig     `mapstructure:"sweeper"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
}

// ServerConfig holds the Gin web server settings.
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"` // prefix of the returned short links
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Name string `mapstructure:"name"`
}

// AuthConfig holds the access-token settings.
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

// TokenTTL returns the access-token lifetime as a duration.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// CacheConfig holds the read-through link cache settings. Entries may be
// stale for up to the TTL; that staleness window is part of the service
// contract, not an accident.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SweeperConfig holds the expired-link sweeper settings.
type SweeperConfig struct {
	IntervalSeconds   int `mapstructure:"interval_seconds"`
	MaxRetries        int `mapstructure:"max_retries"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

// Interval returns the sweep period as a duration.
func (c SweeperConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RetryDelay returns the delay between retries of a failed sweep.
func (c SweeperConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// RateLimiterConfig holds the per-IP rate limiting settings.
type RateLimiterConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxRequests   int  `mapstructure:"max_requests"`
	WindowMinutes int  `mapstructure:"window_minutes"`
}

// LoadConfig loads the application configuration with Viper. It looks for a
// 'config.yaml' in ./configs (or the working directory) and falls back to
// defaults when the file or individual keys are absent.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.name", "tinyurl.db")
	viper.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	viper.SetDefault("auth.token_ttl_minutes", 30)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl_seconds", 60)
	viper.SetDefault("sweeper.interval_seconds", 60)
	viper.SetDefault("sweeper.max_retries", 3)
	viper.SetDefault("sweeper.retry_delay_seconds", 10)
	viper.SetDefault("rate_limiter.enabled", true)
	viper.SetDefault("rate_limiter.max_requests", 100)
	viper.SetDefault("rate_limiter.window_minutes", 1)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No configuration file found, using defaults.")
		} else {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
	} else {
		log.Printf("Configuration file loaded: %s", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Cache TTL=%ds, Sweeper Interval=%ds",
		cfg.Server.Port, cfg.Database.Name, cfg.Cache.TTLSeconds, cfg.Sweeper.IntervalSeconds)

	return &cfg, nil
}
