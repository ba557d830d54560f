package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/cache"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/config"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/storage"
)

// Subscribes to executed-swap events on Redis and mirrors them into
// ClickHouse for long-term history. Without ClickHouse configured it just
// logs the stream.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisCache.Close()

	var store storage.SwapStore
	if cfg.ClickHouseAddr != "" {
		chStore, err := cache.NewClickHouseStore(cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to clickhouse")
		}
		defer chStore.Close()
		store = chStore
	} else {
		logger.Warn("no clickhouse configured, events are logged only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	events, err := redisCache.SubscribeSwaps(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to swap events")
	}
	logger.Info("listening for executed swaps")

	for rec := range events {
		logger.WithFields(logrus.Fields{
			"transaction_id": rec.TransactionID,
			"owner":          rec.Owner,
			"source":         rec.SourceMint,
			"destination":    rec.DestinationMint,
			"transitive":     rec.Transitive,
			"simulation":     rec.Simulation,
		}).Info("swap executed")

		if store == nil || rec.Simulation {
			continue
		}
		insertCtx, insertCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.InsertSwap(insertCtx, rec); err != nil {
			logger.WithError(err).Error("failed to persist swap record")
		}
		insertCancel()
	}
}
