package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	TransitionsFile string
	Database        DatabaseConfig
	Redis           RedisConfig
	Kafka           KafkaConfig
	Auth            AuthConfig
}

// DatabaseConfig configures the Postgres pool. An empty URL runs the
// in-memory stores, which is only meant for development.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig configures the idempotency key store.
type RedisConfig struct {
	URL            string
	PoolSize       int
	MinIdleConns   int
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdempotencyTTL time.Duration
}

// KafkaConfig configures the audit outbox relay.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	OutboxEnabled bool
	RelayInterval time.Duration
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            envOr("FIRLEDGER_ADDR", ":8080"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		TransitionsFile: os.Getenv("CASE_TRANSITIONS_FILE"),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
			TxTimeout:    envDuration("TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("REDIS_URL"),
			PoolSize:       envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:   envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:    envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:    envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:   envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			IdempotencyTTL: envDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("KAFKA_BROKERS"),
			AuditTopic:    envOr("AUDIT_TOPIC", "firledger.audit.v1"),
			OutboxEnabled: os.Getenv("AUDIT_OUTBOX_ENABLED") == "true",
			RelayInterval: envDuration("AUDIT_RELAY_INTERVAL", 2*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envOr("JWT_ISSUER", "firledger"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
