package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver     string // mysql | sqlite | memory
		DSN        string
		SQLitePath string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
		StatsTTL time.Duration
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	Telegram struct {
		Token   string
		AdminID int64
	}

	Match struct {
		PrimaryInterval   time.Duration
		PrimaryTicks      int
		EscalatedInterval time.Duration
		AgeStep           int
		AgeCeiling        int
		MaxFailures       int
		PageSize          int
		LockBackend       string // memory | redis
		LockTTL           time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "anonchat")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.SQLitePath = getEnvDefault("SQLITE_PATH", "anonchat.db")
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "anonchat")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.StatsTTL = getEnvDuration("REDIS_STATS_TTL", 5*time.Second)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP (health + metrics); PORT is what most hosting platforms inject
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("PORT", "10000")

	// Telegram
	cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.AdminID = int64(getEnvInt("ADMIN_ID", 0))

	// Matchmaking
	cfg.Match.PrimaryInterval = getEnvDuration("MATCH_PRIMARY_INTERVAL", 5*time.Second)
	cfg.Match.PrimaryTicks = getEnvInt("MATCH_PRIMARY_TICKS", 3)
	cfg.Match.EscalatedInterval = getEnvDuration("MATCH_ESCALATED_INTERVAL", 10*time.Second)
	cfg.Match.AgeStep = getEnvInt("MATCH_AGE_STEP", 10)
	cfg.Match.AgeCeiling = getEnvInt("MATCH_AGE_CEILING", 99)
	cfg.Match.MaxFailures = getEnvInt("MATCH_MAX_FAILURES", 3)
	cfg.Match.PageSize = getEnvInt("MATCH_PAGE_SIZE", 50)
	cfg.Match.LockBackend = strings.ToLower(getEnvDefault("MATCH_LOCK_BACKEND", "memory"))
	cfg.Match.LockTTL = getEnvDuration("MATCH_LOCK_TTL", 5*time.Second)

	return cfg
}

// IsDevelopment reports whether APP_ENV selects development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getEnvInt falls back to def when the value is missing or not an integer.
func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("5s", "1m") or bare seconds ("5").
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
