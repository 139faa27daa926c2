package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// ValkeyAddr is the durable key-value backend. Empty means run on the
	// in-process fallback only.
	ValkeyAddr string

	// FlagsFile is the YAML file the feature-flag source watches. Empty
	// means all flags stay at their defaults.
	FlagsFile string

	// HTTPTimeout applies to outbound weather and geocoding calls.
	HTTPTimeout time.Duration

	// RefreshInterval controls how often saved-location weather is
	// re-fetched in the background.
	RefreshInterval time.Duration

	GeocoderAPIKey string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.ValkeyAddr = os.Getenv("VALKEY_ADDR")
	cfg.FlagsFile = os.Getenv("FLAGS_FILE")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	interval, err := getenvDuration("REFRESH_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = interval

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
