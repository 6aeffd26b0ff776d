package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName          string
	HTTPPort             string
	PostgresDSN          string
	SweepIntervalSeconds int
	OutboxBatchSize      int

	EnableSessionSweeper bool
	EnableOutboxRelay    bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "quorum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName:          service,
		HTTPPort:             port,
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		SweepIntervalSeconds: envInt("SWEEP_INTERVAL_SECONDS", 60),
		OutboxBatchSize:      envInt("OUTBOX_BATCH_SIZE", 100),

		EnableSessionSweeper: envBool("ENABLE_SESSION_SWEEPER", true),
		EnableOutboxRelay:    envBool("ENABLE_OUTBOX_RELAY", true),
	}, nil
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
