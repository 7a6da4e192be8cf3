package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	APIToken           string
	EncryptionKey      string
	DatabaseURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	SyncMaxMessages    int
	SyncTimeout        time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	syncTimeout := 2 * time.Minute
	if raw := os.Getenv("SYNC_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			syncTimeout = parsed
		}
	}

	maxMessages := 50
	if raw := os.Getenv("SYNC_MAX_MESSAGES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			maxMessages = parsed
		}
	}

	return &Config{
		Port:               getEnv("PORT", "8137"),
		APIToken:           getEnv("API_TOKEN", ""),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "host=localhost user=mailvault dbname=mailvault port=5432 sslmode=disable"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://127.0.0.1:8137/gmail/callback"),
		SyncMaxMessages:    maxMessages,
		SyncTimeout:        syncTimeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
