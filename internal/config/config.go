// Package config loads TaskFlow settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Reports  ReportsConfig
	Backup   BackupConfig
	Worker   WorkerConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	EmbeddedWorkers int
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ReportsConfig struct {
	Dir     string
	FontDir string
	Timeout time.Duration
}

// BackupConfig drives pg_dump. An empty Schedule disables scheduled backups.
type BackupConfig struct {
	Dir       string
	PgDumpBin string
	Schedule  string
}

type WorkerConfig struct {
	ID           string
	Concurrency  int
	PollInterval time.Duration
}

// EmailConfig holds SendGrid settings; notifications are off without an API key.
type EmailConfig struct {
	APIKey      string
	FromName    string
	FromAddress string
}

var (
	ErrMissingDSN    = errors.New("POSTGRES_DSN is required")
	ErrMissingSecret = errors.New("JWT_SECRET is required")
)

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			EmbeddedWorkers: getEnvInt("EMBEDDED_WORKERS", 0),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("POSTGRES_DSN", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Reports: ReportsConfig{
			Dir:     getEnv("REPORTS_DIR", "instance/reports"),
			FontDir: getEnv("FONT_DIR", "fonts"),
			Timeout: getEnvDuration("REPORT_TIMEOUT", 10*time.Minute),
		},
		Backup: BackupConfig{
			Dir:       getEnv("BACKUP_DIR", "instance/backups"),
			PgDumpBin: getEnv("PG_DUMP_PATH", "pg_dump"),
			Schedule:  getEnv("BACKUP_SCHEDULE", ""),
		},
		Worker: WorkerConfig{
			ID:           getEnv("WORKER_ID", ""),
			Concurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvDuration("WORKER_POLL_INTERVAL", time.Second),
		},
		Email: EmailConfig{
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			FromName:    getEnv("FROM_NAME", "TaskFlow"),
			FromAddress: getEnv("FROM_ADDRESS", ""),
		},
	}
}

// Validate checks what the HTTP server needs to start.
func (c *Config) Validate() error {
	if err := c.RequireDSN(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.Server.EmbeddedWorkers < 0 {
		return fmt.Errorf("EMBEDDED_WORKERS must not be negative, got %d", c.Server.EmbeddedWorkers)
	}
	return nil
}

func (c *Config) RequireDSN() error {
	if c.Postgres.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") and plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid %s=%q, using default %s", key, value, defaultValue)
	return defaultValue
}
