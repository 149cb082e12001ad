package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nepfolio/nepfolio/configs"
	"github.com/nepfolio/nepfolio/internal/api"
	"github.com/nepfolio/nepfolio/internal/archive"
	"github.com/nepfolio/nepfolio/internal/ipo"
	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/portfolio"
)

func main() {
	cfg := configs.AppLoad()
	logger := cfg.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Store initialization failed")
	}
	defer store.Close()

	var archiver portfolio.Archiver
	if cfg.ArchiveDSN != "" {
		ch, err := archive.NewClickHouseArchive(cfg.ArchiveDSN)
		if err != nil {
			logger.WithError(err).Fatal("ClickHouse connection failed")
		}
		defer ch.Close()
		archiver = ch
		logger.Info("Transaction archive enabled")
	}

	svc := portfolio.NewService(store, logger, archiver)

	var ipoClient *ipo.Client
	if cfg.IPO.Enabled {
		sessions := ipo.NewSessionCache(cfg.IPO.SessionCap, cfg.IPO.SessionTTL)
		ipoClient = ipo.NewClient(cfg.IPO.BaseURL, sessions)
	}
	boids := ipo.NewRegistry(store)

	router := api.NewRouter(api.NewHandler(store, svc, ipoClient, boids, logger))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.ServerPort).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	<-ctx.Done()
	logger.Warn("Shutdown signal received, stopping API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	logger.Info("API server stopped")
}

// openStore builds the configured persistence backend.
func openStore(ctx context.Context, cfg *configs.AppConfig) (kvstore.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		return kvstore.NewRedisStore(ctx, client)
	default:
		return kvstore.NewMemoryStore(), nil
	}
}
