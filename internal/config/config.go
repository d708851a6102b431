// Package config loads application configuration from environment variables.
// A .env file in the working directory is honored when present.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	TelegramToken  string
	BlinkoURL      string
	SecretKey      []byte
	DBPath         string
	ListenAddr     string
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	InsecureTLS    bool
}

// Load reads configuration from the environment and returns a validated
// Config. BLINKOBOT_TELEGRAM_TOKEN and BLINKOBOT_BLINKO_URL are required.
// BLINKOBOT_SECRET_KEY is optional; when absent the caller is expected to
// load or generate a key file next to the database (see LoadOrCreateKey).
// Optional variables with defaults: BLINKOBOT_DB_PATH (blinkobot.db),
// BLINKOBOT_LISTEN_ADDR (127.0.0.1:8080), BLINKOBOT_POLL_TIMEOUT (50s),
// BLINKOBOT_REQUEST_TIMEOUT (30s), BLINKOBOT_INSECURE_TLS (false).
func Load() (*Config, error) {
	// Best effort; the environment wins over the file.
	_ = godotenv.Load()

	token := os.Getenv("BLINKOBOT_TELEGRAM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BLINKOBOT_TELEGRAM_TOKEN is required")
	}

	blinkoURL := strings.TrimRight(os.Getenv("BLINKOBOT_BLINKO_URL"), "/")
	if blinkoURL == "" {
		return nil, fmt.Errorf("BLINKOBOT_BLINKO_URL is required")
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("BLINKOBOT_SECRET_KEY"); ok && v != "" {
		key, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("BLINKOBOT_SECRET_KEY is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("BLINKOBOT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	dbPath := "blinkobot.db"
	if v, ok := os.LookupEnv("BLINKOBOT_DB_PATH"); ok {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("BLINKOBOT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	pollTimeout := 50 * time.Second
	if v, ok := os.LookupEnv("BLINKOBOT_POLL_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BLINKOBOT_POLL_TIMEOUT has invalid duration %q: %w", v, err)
		}
		pollTimeout = parsed
	}

	requestTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("BLINKOBOT_REQUEST_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BLINKOBOT_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		requestTimeout = parsed
	}

	insecureTLS := false
	if v, ok := os.LookupEnv("BLINKOBOT_INSECURE_TLS"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("BLINKOBOT_INSECURE_TLS has invalid value %q: %w", v, err)
		}
		insecureTLS = parsed
	}

	return &Config{
		TelegramToken:  token,
		BlinkoURL:      blinkoURL,
		SecretKey:      secretKey,
		DBPath:         dbPath,
		ListenAddr:     listenAddr,
		PollTimeout:    pollTimeout,
		RequestTimeout: requestTimeout,
		InsecureTLS:    insecureTLS,
	}, nil
}
