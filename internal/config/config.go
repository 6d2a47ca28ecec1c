// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and validates them for the server or the operator CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are mandatory.
type ValidationMode int

const (
	// ServerMode requires LINE credentials.
	ServerMode ValidationMode = iota
	// CLIMode only needs storage settings.
	CLIMode
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir     string // Data directory for the SQLite database
	DatabaseURL string // Postgres DSN; empty selects SQLite under DataDir
	RegionsFile string // Region dictionary YAML; empty uses the embedded one

	// Admins may edit the contact directory
	AdminUserIDs []string

	Geo         GeoConfig
	RequestLog  RequestLogConfig
	Export      ExportConfig
	Sentry      SentryConfig
	BetterStack BetterStackConfig

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Bot Configuration (embedded)
	Bot BotConfig
}

// GeoConfig tunes the resolve/lookup/reply pipeline.
type GeoConfig struct {
	LookupTimeout  time.Duration // per-region directory lookup
	LookupWorkers  int           // concurrent directory lookups per request
	MaxRegions     int           // distinct regions accepted per request
	SkipIneligible bool          // drop short/numeric tokens instead of reporting them
	MatchThreshold float64       // minimum similarity score, 0-100

	SupportContact string
	Brand          string
	Website        string
	BotName        string // sender name shown on replies
	BotIconURL     string // sender icon, empty keeps the channel icon
}

// RequestLogConfig configures the asynchronous request logger.
type RequestLogConfig struct {
	Mode          string // per_region or per_team
	AggregateTeam string // extra row under this team name, empty = disabled
	Timeout       time.Duration
	Buffer        int
	Workers       int
}

// ExportConfig configures request exports to Cloudflare R2.
type ExportConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string // overrides the account endpoint (S3-compatible stores, tests)
	Prefix          string
	LinkTTL         time.Duration
	Retention       time.Duration // uploaded workbooks are deleted after this
}

// SentryConfig configures error tracking.
type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

// BetterStackConfig configures log shipping.
type BetterStackConfig struct {
	Token    string
	Endpoint string
}

// Load reads server configuration from environment variables.
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration and validates it for mode.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir:     getEnv(EnvDataDir, getDefaultDataDir()),
		DatabaseURL: getEnv(EnvDatabaseURL, ""),
		RegionsFile: getEnv(EnvRegionsFile, ""),

		AdminUserIDs: getListEnv(EnvAdminUserIDs),

		Geo: GeoConfig{
			LookupTimeout:  getDurationEnv(EnvLookupTimeout, DirectoryLookup),
			LookupWorkers:  getIntEnv(EnvLookupWorkers, 8),
			MaxRegions:     getIntEnv(EnvMaxRegions, 12),
			SkipIneligible: getBoolEnv(EnvSkipIneligible, false),
			MatchThreshold: getFloatEnv(EnvMatchThreshold, 70),
			SupportContact: getEnv(EnvSupportContact, ""),
			Brand:          getEnv(EnvBrand, ""),
			Website:        getEnv(EnvWebsite, ""),
			BotName:        getEnv(EnvBotName, "GEO Bot"),
			BotIconURL:     getEnv(EnvBotIconURL, ""),
		},

		RequestLog: RequestLogConfig{
			Mode:          getEnv(EnvRequestLogMode, "per_team"),
			AggregateTeam: getEnv(EnvRequestLogTeam, ""),
			Timeout:       getDurationEnv(EnvRequestLogTime, RequestLogWrite),
			Buffer:        getIntEnv(EnvRequestLogBuffer, 256),
			Workers:       getIntEnv(EnvRequestLogWork, 2),
		},

		Export: ExportConfig{
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			Endpoint:        getEnv(EnvR2Endpoint, ""),
			Prefix:          getEnv(EnvExportPrefix, "exports"),
			LinkTTL:         getDurationEnv(EnvExportLinkTTL, 15*time.Minute),
			Retention:       getDurationEnv(EnvExportRetention, 24*time.Hour),
		},

		Sentry: SentryConfig{
			DSN:         getEnv(EnvSentryDSN, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		BetterStack: BetterStackConfig{
			Token:    getEnv(EnvBetterStackToken, ""),
			Endpoint: getEnv(EnvBetterStackEndpoint, ""),
		},

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		Bot: DefaultBotConfig(),
	}

	cfg.Bot.WebhookTimeout = getDurationEnv(EnvWebhookTimeout, WebhookProcessing)
	cfg.Bot.GlobalRateLimitRPS = getFloatEnv(EnvGlobalRateRPS, cfg.Bot.GlobalRateLimitRPS)
	cfg.Bot.UserRateLimitBurst = getFloatEnv(EnvUserRateBurst, cfg.Bot.UserRateLimitBurst)
	cfg.Bot.UserRateLimitRefillPerSec = getFloatEnv(EnvUserRateRefill, cfg.Bot.UserRateLimitRefillPerSec)
	cfg.Bot.ExportDailyLimit = getIntEnv(EnvExportDailyLimit, cfg.Bot.ExportDailyLimit)

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks server-mode configuration.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks if required configuration values are set
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode {
		if c.LineChannelToken == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
		}
		if c.LineChannelSecret == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
		}
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		}
		if err := c.Bot.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("bot config: %w", err))
		}
	}

	if c.DatabaseURL == "" && c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s or %s is required", EnvDataDir, EnvDatabaseURL))
	}
	if c.Geo.LookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvLookupTimeout, c.Geo.LookupTimeout))
	}
	if c.Geo.LookupWorkers < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvLookupWorkers, c.Geo.LookupWorkers))
	}
	if c.Geo.MaxRegions < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvMaxRegions, c.Geo.MaxRegions))
	}
	if c.Geo.MatchThreshold <= 0 || c.Geo.MatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("%s must be in (0, 100], got %v", EnvMatchThreshold, c.Geo.MatchThreshold))
	}
	if m := c.RequestLog.Mode; m != "per_region" && m != "per_team" {
		errs = append(errs, fmt.Errorf("%s must be per_region or per_team, got %q", EnvRequestLogMode, m))
	}
	if c.RequestLog.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvRequestLogTime, c.RequestLog.Timeout))
	}
	if c.RequestLog.Buffer < 1 || c.RequestLog.Workers < 1 {
		errs = append(errs, fmt.Errorf("%s and %s must be at least 1", EnvRequestLogBuffer, EnvRequestLogWork))
	}
	if c.ExportEnabled() && c.Export.LinkTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvExportLinkTTL, c.Export.LinkTTL))
	}
	if c.ExportEnabled() && c.Export.Retention < c.Export.LinkTTL {
		errs = append(errs, fmt.Errorf("%s must not be shorter than %s", EnvExportRetention, EnvExportLinkTTL))
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", EnvSentrySampleRate, c.Sentry.SampleRate))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "geo.db")
}

// ExportEnabled reports whether R2 credentials are complete.
func (c *Config) ExportEnabled() bool {
	e := c.Export
	return (e.AccountID != "" || e.Endpoint != "") &&
		e.AccessKeyID != "" && e.SecretAccessKey != "" && e.BucketName != ""
}

// IsAdmin reports whether userID may edit the contact directory.
func (c *Config) IsAdmin(userID string) bool {
	return userID != "" && slices.Contains(c.AdminUserIDs, userID)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
