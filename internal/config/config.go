// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Defaults for the Claude OAuth token endpoint used by token refresh.
const (
	DefaultOAuthTokenURL = "https://console.anthropic.com/v1/oauth/token"
	DefaultOAuthClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	SecretKey     []byte // 32-byte AES-256 key; nil when CREDPANEL_SECRET_KEY is unset.
	Location      *time.Location
	OAuthTokenURL string
	OAuthClientID string
	OpTimeout     time.Duration

	// RefreshInterval is the period of the background token sweep. Zero
	// disables automatic refresh.
	RefreshInterval time.Duration
}

// HasSecretKey returns true when an encryption key was configured. Without it
// credential metadata stays readable but secrets can be neither stored nor read.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: CREDPANEL_LISTEN_ADDR (127.0.0.1:8080),
// CREDPANEL_DB_PATH (credpanel.db), CREDPANEL_SECRET_KEY (64 hex chars),
// CREDPANEL_TIMEZONE (IANA name, local zone when unset), CREDPANEL_OAUTH_TOKEN_URL,
// CREDPANEL_OAUTH_CLIENT_ID, CREDPANEL_OP_TIMEOUT (30s) and
// CREDPANEL_REFRESH_INTERVAL (5m, 0 disables).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CREDPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "credpanel.db"
	if v, ok := os.LookupEnv("CREDPANEL_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v := os.Getenv("CREDPANEL_SECRET_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("CREDPANEL_SECRET_KEY must be 64 hex characters (32 bytes), got %d bytes", len(key))
		}
		secretKey = key
	}

	loc := time.Local
	if v := os.Getenv("CREDPANEL_TIMEZONE"); v != "" {
		parsed, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_TIMEZONE has invalid zone %q: %w", v, err)
		}
		loc = parsed
	}

	tokenURL := DefaultOAuthTokenURL
	if v := os.Getenv("CREDPANEL_OAUTH_TOKEN_URL"); v != "" {
		tokenURL = v
	}

	clientID := DefaultOAuthClientID
	if v := os.Getenv("CREDPANEL_OAUTH_CLIENT_ID"); v != "" {
		clientID = v
	}

	opTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("CREDPANEL_OP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_OP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("CREDPANEL_OP_TIMEOUT must be positive, got %s", parsed)
		}
		opTimeout = parsed
	}

	refreshInterval := 5 * time.Minute
	if v, ok := os.LookupEnv("CREDPANEL_REFRESH_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_REFRESH_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("CREDPANEL_REFRESH_INTERVAL must not be negative, got %s", parsed)
		}
		refreshInterval = parsed
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SecretKey:     secretKey,
		Location:      loc,
		OAuthTokenURL: tokenURL,
		OAuthClientID: clientID,
		OpTimeout:     opTimeout,

		RefreshInterval: refreshInterval,
	}, nil
}
