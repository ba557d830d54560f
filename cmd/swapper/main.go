package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/cache"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/config"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/orcaswap"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
)

// One-shot swap runner. Reads the trade from environment variables, finds
// the best route, executes it and records the result in Redis.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fromMint := mustMint(logger, "SWAP_FROM_MINT")
	toMint := mustMint(logger, "SWAP_TO_MINT")
	amount, err := strconv.ParseFloat(os.Getenv("SWAP_AMOUNT"), 64)
	if err != nil || amount <= 0 {
		logger.Fatal("SWAP_AMOUNT must be a positive number")
	}
	slippageBps := uint16(100)
	if s := os.Getenv("SWAP_SLIPPAGE_BPS"); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			logger.Fatal("SWAP_SLIPPAGE_BPS must be an integer")
		}
		slippageBps = uint16(n)
	}
	simulation := os.Getenv("SWAP_SIMULATION") == "true"

	account, err := chain.NewAccount(cfg.OwnerKey)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse OWNER_KEY")
	}
	owner := account.PublicKey()

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

	swapService, err := orcaswap.NewService(orcaswap.ServiceConfig{
		Registry: registry.NewClient(cfg.RegistryURL, cfg.RegistryFile),
		Chain:    chainClient,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := swapService.Load(ctx); err != nil {
		logger.WithError(err).Fatal("failed to load swap info")
	}
	snap := swapService.Snapshot()
	sourceToken, ok := snap.TokenByMint(fromMint)
	if !ok {
		logger.Fatal("source mint is not in the registry")
	}
	amountIn := orcaswap.BaseUnits(amount, sourceToken.Decimals)

	pairs, err := swapService.GetTradablePoolsPairs(ctx, fromMint, toMint)
	if err != nil {
		logger.WithError(err).Fatal("failed to resolve routes")
	}
	best := orcaswap.FindBestPoolsPairForInputAmount(amountIn, pairs)
	if best == nil {
		logger.Fatal("no tradable route between the given mints")
	}
	estimated, _ := best.OutputAmount(amountIn)
	logger.WithFields(logrus.Fields{
		"hops":      len(*best),
		"amount_in": amountIn,
		"estimated": estimated,
	}).Info("route selected")

	fromWallet, err := resolveWallet(ctx, chainClient, owner, fromMint)
	if err != nil {
		logger.WithError(err).Fatal("failed to resolve source wallet")
	}
	if fromWallet == nil {
		logger.Fatal("source token account does not exist")
	}
	toWallet, err := resolveWallet(ctx, chainClient, owner, toMint)
	if err != nil {
		logger.WithError(err).Fatal("failed to resolve destination wallet")
	}
	var toWalletPk *solana.PublicKey
	if toWallet != nil {
		pk := *toWallet
		toWalletPk = &pk
	}

	result, err := swapService.Swap(ctx, orcaswap.SwapParams{
		PrepareSwapParams: orcaswap.PrepareSwapParams{
			Owner:         account.PrivateKey(),
			FromWallet:    *fromWallet,
			FromMint:      fromMint,
			ToWallet:      toWalletPk,
			ToMint:        toMint,
			BestPoolsPair: *best,
			Amount:        amount,
			SlippageBps:   slippageBps,
		},
		IsSimulation: simulation,
		OnState: func(state orcaswap.SwapState) {
			logger.WithField("state", state).Info("swap state changed")
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("swap failed")
	}

	logger.WithFields(logrus.Fields{
		"transaction_id": result.TransactionID,
		"simulation":     simulation,
	}).Info("swap completed")

	record(ctx, cfg, logger, &models.SwapRecord{
		TransactionID:   result.TransactionID,
		Timestamp:       time.Now().UTC(),
		Owner:           owner.String(),
		SourceMint:      fromMint.String(),
		DestinationMint: toMint.String(),
		Route:           routeNames(*best),
		AmountIn:        amountIn,
		Transitive:      len(*best) == 2,
		Simulation:      simulation,
	})
}

func mustMint(logger *logrus.Logger, env string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(os.Getenv(env))
	if err != nil {
		logger.Fatalf("%s must be a valid mint address", env)
	}
	return pk
}

func resolveWallet(ctx context.Context, client *chain.Client, owner, mint solana.PublicKey) (*solana.PublicKey, error) {
	if mint.Equals(chain.WrappedSOLMint) {
		pk := owner
		return &pk, nil
	}
	ata, _, err := chain.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	exists, err := client.CheckIfAssociatedTokenAccountExists(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &ata, nil
}

func routeNames(pair orcaswap.PoolsPair) []string {
	out := make([]string, 0, len(pair))
	for i := range pair {
		out = append(out, pair[i].Name)
	}
	return out
}

// record stores the result in the recent-swaps cache and publishes it.
// Failures are logged but do not fail the run: the swap already happened.
func record(ctx context.Context, cfg *config.Config, logger *logrus.Logger, rec *models.SwapRecord) {
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to connect to redis, skipping record")
		return
	}
	defer redisCache.Close()

	if err := redisCache.AddRecentSwap(ctx, rec); err != nil {
		logger.WithError(err).Warn("failed to cache swap record")
	}
	if err := redisCache.PublishSwap(ctx, rec); err != nil {
		logger.WithError(err).Warn("failed to publish swap record")
	}
}
