package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"github.com/suPer8Hu/gemini-chat/internal/chat"
	"github.com/suPer8Hu/gemini-chat/internal/config"
	"github.com/suPer8Hu/gemini-chat/internal/db"
	"github.com/suPer8Hu/gemini-chat/internal/logging"
	"github.com/suPer8Hu/gemini-chat/internal/store/redisstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every subcommand shares.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB

	// nil without GEMINI_API_KEY
	provider ai.Provider
	resolver *ai.Resolver

	locker chat.Locker
	rdb    *redis.Client

	chatRepo   *chat.Repo
	chat       *chat.Service
	dispatcher *chat.Dispatcher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: gdb}

	if cfg.GeminiAPIKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.provider = p
		a.resolver = newResolver(p, cfg)
	} else {
		logger.Warn("GEMINI_API_KEY not set; sends will fail as misconfigured")
	}

	a.locker = chat.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.rdb = rdb
		a.locker = redisstore.NewLocker(rdb, cfg.ProviderTotalTimeout+cfg.ProviderAttemptTimeout)
	}

	a.chatRepo = chat.NewRepo(gdb)
	a.chat = chat.NewService(a.chatRepo, cfg.GeminiModel)

	var resolver chat.ModelResolver
	if a.resolver != nil {
		resolver = a.resolver
	}
	a.dispatcher = chat.NewDispatcher(a.chatRepo, a.provider, resolver, a.locker, chat.DispatcherConfig{
		Fallbacks:      cfg.FallbackModels,
		AttemptTimeout: cfg.ProviderAttemptTimeout,
		TotalTimeout:   cfg.ProviderTotalTimeout,
	}, logger.Named("dispatcher"))

	return a, nil
}

// newResolver ranks GEMINI_MODEL, as configured, ahead of the preferred list.
// With no model configured the preferred list alone decides.
func newResolver(cat ai.Catalog, cfg config.Config) *ai.Resolver {
	return ai.NewResolver(cat, cfg.GeminiModel, cfg.PreferredModels)
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) requireProvider() error {
	if a.provider == nil {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return nil
}
