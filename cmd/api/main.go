package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/cache"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/config"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/gates"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/orcaswap"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/server"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/storage"
)

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	chainClient, err := chain.NewClient(chain.ClientConfig{
		RPCURL:         cfg.RPCURL,
		Timeout:        cfg.HTTPTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		Commitment:     cfg.Commitment,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create blockchain client")
	}

	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisCache.Close()

	gateStore, err := gates.NewStore(redisCache.Client())
	if err != nil {
		logger.WithError(err).Fatal("failed to create gate store")
	}

	// ClickHouse is optional: without it swap history is kept in Redis only
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
	}

	registryClient := registry.NewCachedClient(
		registry.NewClient(cfg.RegistryURL, cfg.RegistryFile),
		redisCache, cfg.RegistryTTL, logger,
	)
	swapService, err := orcaswap.NewService(orcaswap.ServiceConfig{
		Registry: registryClient,
		Chain:    chainClient,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap service")
	}
	if err := swapService.Load(context.Background()); err != nil {
		logger.WithError(err).Fatal("failed to load swap info")
	}

	handlers := &server.Handlers{
		Swap:                 swapService,
		Chain:                chainClient,
		Cache:                redisCache,
		Store:                store,
		Gates:                gateStore,
		DevMode:              cfg.DevMode,
		Logger:               logger,
		LamportsPerSignature: cfg.LamportsPerSignature,
	}

	// Swap execution requires a signing key; read-only endpoints work without
	if cfg.OwnerKey != "" {
		account, err := chain.NewAccount(cfg.OwnerKey)
		if err != nil {
			logger.WithError(err).Fatal("failed to parse owner key")
		}
		handlers.Signer = account.PrivateKey()
		logger.WithField("owner", account.Address()).Info("swap signer configured")
	} else {
		logger.Warn("no owner key configured, swap execution is disabled")
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:          cfg.ListenAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			SwapRateLimit: cfg.SwapRateLimit,
			SwapRateBurst: cfg.SwapRateBurst,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create server")
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("starting API server")
		if err := srv.Start(); err != nil {
			logger.WithError(err).Info("server stopped")
		}
	}()

	// SIGHUP refreshes the swap-info snapshot without a restart
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		if err := swapService.Reload(context.Background()); err != nil {
			logger.WithError(err).Error("failed to reload swap info")
		}
	}

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
