package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"slimechat/backend/internal/chat"
	"slimechat/backend/internal/models"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/config"
	"slimechat/backend/pkg/logger"
	"slimechat/backend/pkg/router"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("starting slimechat server", "env", cfg.Server.Env, "db_driver", cfg.Database.Driver)

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.Message{}, &models.Presence{}); err != nil {
		log.LogError(err, "failed to migrate database")
		os.Exit(1)
	}

	messages := store.NewGormMessageRepository(db)
	presence := store.NewGormPresenceRepository(db)

	// Presence rows from a previous process are stale
	if err := presence.Clear(context.Background()); err != nil {
		log.LogError(err, "failed to clear stale presence rows")
	}

	hub := chat.NewHub(chat.HubConfig{
		MaxNameLength:      cfg.Chat.MaxNameLength,
		MaxMessageLength:   cfg.Chat.MaxMessageLength,
		RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
		HistoryPageSize:    cfg.Chat.HistoryPageSize,
	}, messages, presence, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retention := chat.NewRetentionService(messages, cfg.Chat.MessageHistoryMax, cfg.Chat.CleanupInterval, log)
	go retention.Run(ctx)

	r := router.New(cfg, hub, messages, log)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server")

	// Stop the retention service and in-flight pipelines, then drain HTTP
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "forced shutdown")
		os.Exit(1)
	}

	log.Info("server stopped")
}
