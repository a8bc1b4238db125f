package config

import (
	"os"
	"time"
)

// Server captures process-level configuration. Engine-level normalization
// tables live in internal/dashboard/config and load separately.
type Server struct {
	Addr             string
	DatabaseURL      string
	RedisURL         string
	EngineConfigPath string
	SnapshotTTL      time.Duration
	RefreshInterval  time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ECAP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	snapshotTTL := durationEnv("ECAP_SNAPSHOT_TTL", 15*time.Minute)
	refreshInterval := durationEnv("ECAP_REFRESH_INTERVAL", 0)

	return Server{
		Addr:             addr,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		EngineConfigPath: os.Getenv("ECAP_ENGINE_CONFIG"),
		SnapshotTTL:      snapshotTTL,
		RefreshInterval:  refreshInterval,
		ReadTimeout:      durationEnv("ECAP_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:     durationEnv("ECAP_HTTP_WRITE_TIMEOUT", 60*time.Second),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
