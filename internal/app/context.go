package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/anonchat/internal/cache"
	"github.com/oggyb/anonchat/internal/matchmaking"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Engine).
// DB and RedisCache are nil when the service runs on the in-memory store.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Engine     *matchmaking.Engine
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, engine *matchmaking.Engine) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Engine:     engine,
	}
}
