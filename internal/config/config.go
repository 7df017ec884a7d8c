// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/BeautifulBabe-MTM/penki-server/internal/engine"
)

// Config is the full server configuration.
type Config struct {
	Addr        string // listen address, e.g. ":8080"
	RedisAddr   string // empty disables the action historian
	PostgresDSN string // empty disables result persistence
	JWTSecret   string // empty disables the websocket auth gate

	DeckVariant    int
	TargetHandSize int
	HistoryTTL     time.Duration
}

// Load reads PENKI_* environment variables, after merging in a .env
// file if one exists.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("PENKI_ADDR", ":8080"),
		RedisAddr:      getEnv("PENKI_REDIS_ADDR", ""),
		PostgresDSN:    getEnv("PENKI_POSTGRES_DSN", ""),
		JWTSecret:      getEnv("PENKI_JWT_SECRET", ""),
		DeckVariant:    engine.Deck36,
		TargetHandSize: 6,
		HistoryTTL:     24 * time.Hour,
	}

	var err error
	if cfg.DeckVariant, err = getEnvInt("PENKI_DECK_VARIANT", cfg.DeckVariant); err != nil {
		return nil, err
	}
	if cfg.TargetHandSize, err = getEnvInt("PENKI_HAND_SIZE", cfg.TargetHandSize); err != nil {
		return nil, err
	}
	if raw := os.Getenv("PENKI_HISTORY_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("PENKI_HISTORY_TTL: %w", err)
		}
		cfg.HistoryTTL = ttl
	}

	if err := cfg.GameConfig().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GameConfig converts the server settings into the engine's config.
func (c *Config) GameConfig() engine.Config {
	return engine.Config{DeckVariant: c.DeckVariant, TargetHandSize: c.TargetHandSize}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
