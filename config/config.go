package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for the dispenser service.
type Config struct {
	Port         string
	DatabaseURL  string
	ServiceToken string
	Location     *time.Location
	LogLevel     string
	LogFile      string
	RestockCron  string
	Archive      ArchiveConfig
}

// ArchiveConfig controls the nightly ledger archive to R2.
type ArchiveConfig struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
}

// FromEnv reads configuration from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "5300"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ServiceToken: strings.TrimSpace(os.Getenv("SERVICE_TOKEN")),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:      strings.TrimSpace(os.Getenv("LOG_FILE")),
		RestockCron:  strings.TrimSpace(os.Getenv("RESTOCK_CRON")),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	archiveEnabled, err := parseBool(os.Getenv("ARCHIVE_ENABLED"), false)
	if err != nil {
		return nil, fmt.Errorf("invalid ARCHIVE_ENABLED: %w", err)
	}
	cfg.Archive = ArchiveConfig{
		Enabled:         archiveEnabled,
		AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		Bucket:          os.Getenv("R2_BUCKET_NAME"),
		Prefix:          getEnv("ARCHIVE_PREFIX", "ledger"),
	}
	if cfg.Archive.Enabled && (cfg.Archive.AccountID == "" || cfg.Archive.Bucket == "") {
		return nil, fmt.Errorf("ARCHIVE_ENABLED requires CLOUDFLARE_ACCOUNT_ID and R2_BUCKET_NAME")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(raw string, fallback bool) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}
