// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	SecretKey       []byte
	SystemPrincipal string
	LogLevel        slog.Level
}

// HasSecretKey reports whether credential secrets can be stored. Without a key
// credential writes are rejected and credential lookups return nothing; only
// endpoint and matcher queries still work.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: BBCREDS_LISTEN_ADDR (127.0.0.1:8080),
// BBCREDS_DB_PATH (bbcreds.db), BBCREDS_SECRET_KEY (64 hex chars, unset disables
// credential storage), BBCREDS_SYSTEM_PRINCIPAL (SYSTEM), BBCREDS_LOG_LEVEL (info).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("BBCREDS_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "bbcreds.db"
	if v, ok := os.LookupEnv("BBCREDS_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("BBCREDS_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("BBCREDS_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("BBCREDS_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	systemPrincipal := "SYSTEM"
	if v, ok := os.LookupEnv("BBCREDS_SYSTEM_PRINCIPAL"); ok {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, errors.New("BBCREDS_SYSTEM_PRINCIPAL must not be blank")
		}
		systemPrincipal = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("BBCREDS_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("BBCREDS_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		SecretKey:       secretKey,
		SystemPrincipal: systemPrincipal,
		LogLevel:        logLevel,
	}, nil
}
