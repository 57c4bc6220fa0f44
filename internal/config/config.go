package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultSessionURL = "https://api.fastmail.com/jmap/session"

type Config struct {
	DatabaseURL      string
	HTTPAddr         string
	MailUsername     string
	MailAPIToken     string
	MailSessionURL   string
	SyncInterval     int // seconds
	SyncPageSize     int
	ResyncDelay      int // seconds, re-sync delay after a send
	ShutdownTimeout  int // seconds
	SpamNamePatterns []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	username := os.Getenv("MAIL_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("MAIL_USERNAME is required")
	}

	token := os.Getenv("MAIL_API_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("MAIL_API_TOKEN is required")
	}

	sessionURL := os.Getenv("MAIL_SESSION_URL")
	if sessionURL == "" {
		sessionURL = defaultSessionURL
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":3001"
	}

	return &Config{
		DatabaseURL:      dbURL,
		HTTPAddr:         addr,
		MailUsername:     username,
		MailAPIToken:     token,
		MailSessionURL:   sessionURL,
		SyncInterval:     intEnv("SYNC_INTERVAL", 60),
		SyncPageSize:     intEnv("SYNC_PAGE_SIZE", 50),
		ResyncDelay:      intEnv("RESYNC_DELAY", 2),
		ShutdownTimeout:  intEnv("SHUTDOWN_TIMEOUT", 30),
		SpamNamePatterns: listEnv("SPAM_NAME_PATTERNS"),
	}, nil
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func listEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
