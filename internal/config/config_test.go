package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{
		"APP_ENV", "DB_DRIVER", "MYSQL_DSN", "PORT", "MATCH_PRIMARY_INTERVAL",
		"MATCH_PRIMARY_TICKS", "MATCH_LOCK_BACKEND", "TELEGRAM_BOT_TOKEN",
	} {
		t.Setenv(k, "")
	}

	cfg := New()

	assert.Equal(t, "development", cfg.App.ENV)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/anonchat")
	assert.Equal(t, "10000", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Match.PrimaryInterval)
	assert.Equal(t, 3, cfg.Match.PrimaryTicks)
	assert.Equal(t, 10*time.Second, cfg.Match.EscalatedInterval)
	assert.Equal(t, 10, cfg.Match.AgeStep)
	assert.Equal(t, 99, cfg.Match.AgeCeiling)
	assert.Equal(t, 3, cfg.Match.MaxFailures)
	assert.Equal(t, 50, cfg.Match.PageSize)
	assert.Equal(t, "memory", cfg.Match.LockBackend)
	assert.Empty(t, cfg.Telegram.Token)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/x")
	t.Setenv("MATCH_PRIMARY_INTERVAL", "250ms")
	t.Setenv("MATCH_ESCALATED_INTERVAL", "7")
	t.Setenv("MATCH_PRIMARY_TICKS", "5")
	t.Setenv("MATCH_LOCK_BACKEND", "redis")
	t.Setenv("ADMIN_ID", "12345")
	t.Setenv("REDIS_DB", "2")

	cfg := New()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DB.SQLitePath)
	assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.DB.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Match.PrimaryInterval)
	assert.Equal(t, 7*time.Second, cfg.Match.EscalatedInterval)
	assert.Equal(t, 5, cfg.Match.PrimaryTicks)
	assert.Equal(t, "redis", cfg.Match.LockBackend)
	assert.Equal(t, int64(12345), cfg.Telegram.AdminID)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestNew_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MATCH_PAGE_SIZE", "lots")
	t.Setenv("MATCH_PRIMARY_INTERVAL", "soon")

	cfg := New()

	assert.Equal(t, 50, cfg.Match.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Match.PrimaryInterval)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
