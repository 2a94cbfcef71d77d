package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config maps the whole application configuration.
// Keys are bound with mapstructure tags so viper can unmarshal YAML and
// environment overrides into one strongly-typed struct.
type Config struct {
	// Server configuration for the HTTP layer
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL string `mapstructure:"base_url"` // public origin this instance serves from
	} `mapstructure:"server"`

	// Database configuration for SQLite
	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	// Shortener configuration for the rewrite pipeline
	Shortener struct {
		// ShortDomain is the absolute base used when minting short links
		// (e.g. "https://s.example"). When left empty it falls back to
		// server.base_url at load time so every link minted by one
		// deployment shares the same prefix regardless of the inbound
		// request's Host header.
		ShortDomain    string `mapstructure:"short_domain"`
		MaxUploadBytes int64  `mapstructure:"max_upload_bytes"` // upload size cap (default 5 MiB)
		CodeLength     int    `mapstructure:"code_length"`      // short code length (default 8)
	} `mapstructure:"shortener"`

	// Analytics configuration for asynchronous click tracking
	Analytics struct {
		BufferSize  int `mapstructure:"buffer_size"`  // click event channel buffer
		WorkerCount int `mapstructure:"worker_count"` // worker goroutines draining the channel
	} `mapstructure:"analytics"`

	// Monitor configuration for destination health checking
	Monitor struct {
		IntervalMinutes int `mapstructure:"interval_minutes"` // minutes between destination checks
		RecentLinks     int `mapstructure:"recent_links"`     // how many recent links to check per pass
	} `mapstructure:"monitor"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
func LoadConfig() (*Config, error) {
	// Environment variables override file values, with dots replaced by
	// underscores: "shortener.short_domain" -> "SHORTENER_SHORT_DOMAIN".
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Defaults cover every key so a missing config file is not fatal.
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.name", "zaymo.db")
	viper.SetDefault("shortener.short_domain", "")
	viper.SetDefault("shortener.max_upload_bytes", 5*1024*1024)
	viper.SetDefault("shortener.code_length", 8)
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("monitor.interval_minutes", 5)
	viper.SetDefault("monitor.recent_links", 50)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using default values")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Short-domain fallback is a load-time policy, never a per-request one.
	if strings.TrimSpace(cfg.Shortener.ShortDomain) == "" {
		cfg.Shortener.ShortDomain = cfg.Server.BaseURL
	}
	cfg.Shortener.ShortDomain = NormalizeShortDomain(cfg.Shortener.ShortDomain)

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Short Domain=%s, Upload Cap=%d bytes",
		cfg.Server.Port, cfg.Database.Name, cfg.Shortener.ShortDomain, cfg.Shortener.MaxUploadBytes)

	return &cfg, nil
}

// NormalizeShortDomain forces an http(s) scheme and strips trailing slashes
// so short URLs concatenate cleanly as "{domain}/r/{code}".
func NormalizeShortDomain(domain string) string {
	d := strings.TrimSpace(domain)
	lower := strings.ToLower(d)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		d = "https://" + d
	}
	return strings.TrimRight(d, "/")
}
