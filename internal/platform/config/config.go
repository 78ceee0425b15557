package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean.
type Config struct {
	Addr            string
	PostgresURL     string
	RedisURL        string
	KafkaBrokers    []string
	KafkaGroup      string
	JWTSigningKey   string
	AuditBuffer     int
	RealtimeTimeout time.Duration
	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
// Empty PostgresURL/RedisURL/KafkaBrokers mean the corresponding backend is
// not configured and in-memory / no-op implementations are wired instead.
func FromEnv() Config {
	addr := os.Getenv("WAYFARE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	group := os.Getenv("WAYFARE_KAFKA_GROUP")
	if group == "" {
		group = "wayfare-disclosure"
	}

	jwtSigningKey := os.Getenv("WAYFARE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:            addr,
		PostgresURL:     os.Getenv("WAYFARE_POSTGRES_URL"),
		RedisURL:        os.Getenv("WAYFARE_REDIS_URL"),
		KafkaBrokers:    splitList(os.Getenv("WAYFARE_KAFKA_BROKERS")),
		KafkaGroup:      group,
		JWTSigningKey:   jwtSigningKey,
		AuditBuffer:     intFromEnv("WAYFARE_AUDIT_BUFFER", 1024),
		RealtimeTimeout: durationFromEnv("WAYFARE_REALTIME_TIMEOUT", 2*time.Second),
		ShutdownTimeout: durationFromEnv("WAYFARE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
