package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	WebConfig
	DatabaseConfig
	DispatchConfig
	WebhookConfig
	QueueConfig
	RedisConfig
}

type WebConfig struct {
	Port           string   `envconfig:"APP_PORT" default:"8080"`
	AllowedOrigins []string `envconfig:"APP_ALLOWED_ORIGINS" default:"*"`
}

type DatabaseConfig struct {
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"disparador"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

type DispatchConfig struct {
	RecipientCap int           `envconfig:"DISPATCH_RECIPIENT_CAP" default:"30"`   // max recipients bound per campaign
	MaxAttempts  int           `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"3"`     // total delivery attempts per send
	ClaimTTL     time.Duration `envconfig:"DISPATCH_CLAIM_TTL" default:"10m"`      // stale in-flight claims older than this are requeued
	LockTTL      time.Duration `envconfig:"DISPATCH_LOCK_TTL" default:"5m"`        // run-lock expiry
	HistoryAhead time.Duration `envconfig:"DISPATCH_HISTORY_AHEAD" default:"168h"` // next-eligible stamp on history entries (7 days)
}

type WebhookConfig struct {
	WebhookURL     string        `envconfig:"WEBHOOK_URL" required:"true"`
	WebhookTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"30s"`
}

type QueueConfig struct {
	AMQPURL       string `envconfig:"AMQP_URL" default:""` // empty disables the queue integration
	TickQueue     string `envconfig:"AMQP_TICK_QUEUE" default:"disparador_ticks"`
	OutcomeQueue  string `envconfig:"AMQP_OUTCOME_QUEUE" default:"disparador_outcomes"`
	PrefetchCount int    `envconfig:"AMQP_PREFETCH" default:"1"`
}

type RedisConfig struct {
	RedisAddr string `envconfig:"REDIS_ADDR" default:""` // empty falls back to PG advisory locks
}

// Load reads .env (when present) and the process environment into Config.
func Load() (*Config, error) {
	// Missing .env is fine; the OS environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}
