package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/anonchat/internal/app"
	"github.com/oggyb/anonchat/internal/cache"
	"github.com/oggyb/anonchat/internal/config"
	"github.com/oggyb/anonchat/internal/db"
	"github.com/oggyb/anonchat/internal/lock"
	"github.com/oggyb/anonchat/internal/logger"
	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/repository"
	"github.com/oggyb/anonchat/internal/server"
	"github.com/oggyb/anonchat/internal/service/chatbot"
	mmsvc "github.com/oggyb/anonchat/internal/service/matchmaking"
	"github.com/oggyb/anonchat/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		logger.Error("anonchat stopped with error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init store
	var store matchmaking.Store
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	if database != nil {
		store = repository.NewProfileRepository(database)
		if cfg.IsDevelopment() && cfg.DB.Driver == "sqlite" {
			if err := db.SeedDemoData(database); err != nil {
				log.Error("failed to seed", "err", err)
			}
		}
	} else {
		log.Warn("using in-memory store, data is lost on restart")
		store = repository.NewMemoryStore()
	}

	// Init Redis. Required for the redis lock backend, optional otherwise.
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		if cfg.Match.LockBackend == "redis" {
			return errors.Join(errors.New("redis lock backend needs redis"), err)
		}
		log.Warn("redis unavailable, stats are served uncached", "addr", cfg.Redis.Addr, "err", err)
		_ = redisCache.Close()
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	var locker matchmaking.Locker = lock.NewKeyedMutex()
	if cfg.Match.LockBackend == "redis" {
		locker = lock.NewRedisLocker(redisCache, cfg.Match.LockTTL, logger.Component("lock"))
	}

	// Telegram is optional; without a token the engine is driven over gRPC
	// only and notices are logged.
	var (
		bot   *telegram.Bot
		relay matchmaking.Relay = logRelay{log: logger.Component("relay")}
	)
	if cfg.Telegram.Token != "" {
		bot, err = telegram.NewBot(cfg.Telegram.Token, logger.Component("telegram"))
		if err != nil {
			return err
		}
		relay = chatbot.NewRelay(bot)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}

	engine := matchmaking.NewEngine(store, locker, relay, logger.Component("engine"), matchmaking.Options{
		PrimaryInterval:   cfg.Match.PrimaryInterval,
		PrimaryTicks:      cfg.Match.PrimaryTicks,
		EscalatedInterval: cfg.Match.EscalatedInterval,
		AgeStep:           cfg.Match.AgeStep,
		AgeCeiling:        cfg.Match.AgeCeiling,
		MaxFailures:       cfg.Match.MaxFailures,
		PageSize:          cfg.Match.PageSize,
	})
	if n, err := engine.Restore(ctx); err != nil {
		log.Error("failed to restore searches", "err", err)
	} else if n > 0 {
		log.Info("reset orphaned searches", "count", n)
	}

	// Inject dependencies into app context
	appCtx := app.New(database, redisCache, log, engine)

	registrars := []server.Registrar{
		mmsvc.NewRegistrar(appCtx),
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	runTask := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error("task failed", "task", name, "err", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				stop()
			}
		}()
	}

	runTask("grpc", func(ctx context.Context) error {
		return server.StartGRPCServer(ctx, cfg, logger.Component("grpc"), registrars...)
	})
	runTask("http", func(ctx context.Context) error {
		return server.StartHTTPServer(ctx, cfg, logger.Component("http"))
	})
	if bot != nil {
		handler := chatbot.NewHandler(engine, bot, logger.Component("chatbot"), cfg.Telegram.AdminID)
		runTask("telegram", func(ctx context.Context) error {
			return bot.Listen(ctx, handler.Handlers())
		})
	}

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// openDB returns nil for the in-memory driver.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == "memory" {
		return nil, nil
	}
	return db.NewDB(cfg)
}

// logRelay stands in for the Telegram transport when no bot is configured.
type logRelay struct {
	log *slog.Logger
}

func (r logRelay) SendText(_ context.Context, to int64, text string) error {
	r.log.Info("message", "to", to, "len", len(text))
	return nil
}

func (r logRelay) Notify(_ context.Context, to int64, n matchmaking.Notice) error {
	r.log.Info("notice", "to", to, "kind", n.Kind)
	return nil
}
