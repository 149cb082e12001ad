package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/nepfolio/nepfolio/configs"
	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/market"
	"github.com/nepfolio/nepfolio/internal/publish"
	"github.com/nepfolio/nepfolio/internal/scraper"
	"github.com/nepfolio/nepfolio/utils"
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

	var publisher scraper.QuotePublisher
	if cfg.Kafka.Broker != "" {
		kafkaPub := publish.NewKafkaPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		defer kafkaPub.Close()
		publisher = kafkaPub
		logger.WithField("topic", cfg.Kafka.Topic).Info("Quote feed enabled")
	}

	source := scraper.NewMerolaganiSource(cfg.Sync.MarketURL, cfg.Sync.RequestsPerMin)
	engine := market.NewEngine(store, logger)
	syncer := scraper.NewSyncer(source, engine, publisher, logger)

	logger.WithField("interval", cfg.Sync.Interval).Info("Market sync starting")
	syncer.Run(ctx, cfg.Sync.Interval, utils.InTradingWindow)

	logger.Info("Market sync stopped")
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
