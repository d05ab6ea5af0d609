// Package config loads scsync's environment-variable configuration:
// data directories, the Redis lock/stream address, the SQLite manifest
// path, the Pebble ledger path, listen addresses, and the admin TOTP
// secret.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds every setting a scsync run needs.
type Config struct {
	// Locator
	DataDir   string // directory holding <symbol>.scid / <symbol>.<date>.depth
	OutputDir string // directory the -SYNC outputs are written to

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	LedgerPath    string
	MetricsAddr   string
	AdminAddr     string

	// Admin API
	AdminTOTPSecret string

	// Alerting
	NotifyWebhookURL  string
	TelegramBotToken  string
	TelegramChatID    string
	AnomalyThreshold  int

	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults. The admin TOTP secret and the alerting targets default to
// empty; while the TOTP secret is empty the admin resync endpoint
// rejects every request.
func Load() *Config {
	return &Config{
		DataDir:   getEnv("SCSYNC_DATA_DIR", "./data"),
		OutputDir: getEnv("SCSYNC_OUTPUT_DIR", "./data"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SCSYNC_SQLITE_PATH", "data/manifest.db"),
		LedgerPath:    getEnv("SCSYNC_LEDGER_PATH", "data/ledger"),
		MetricsAddr:   getEnv("SCSYNC_METRICS_ADDR", ":9090"),
		AdminAddr:     getEnv("SCSYNC_ADMIN_ADDR", ":9091"),

		AdminTOTPSecret: os.Getenv("SCSYNC_ADMIN_TOTP_SECRET"),

		NotifyWebhookURL: os.Getenv("SCSYNC_NOTIFY_WEBHOOK_URL"),
		TelegramBotToken: os.Getenv("SCSYNC_TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("SCSYNC_TELEGRAM_CHAT_ID"),
		AnomalyThreshold: getEnvInt("SCSYNC_ANOMALY_THRESHOLD", 1000),

		LogLevel: getEnv("SCSYNC_LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid int for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
