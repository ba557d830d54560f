package orcaswap

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
)

// BlockchainClient is the boundary to the Solana RPC endpoint. Implemented
// by chain.Client; faked in tests.
type BlockchainClient interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, span uint64) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error)
	CheckIfAssociatedTokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error)
	PrepareTransaction(ctx context.Context, params chain.PrepareTransactionParams) (*chain.PreparedTransaction, error)
	SerializeAndSend(ctx context.Context, prepared *chain.PreparedTransaction, isSimulation bool) (string, error)
	WaitForConfirmation(ctx context.Context, signature string) error
}

// RegistryLoader fetches swap-info snapshots.
type RegistryLoader interface {
	GetSwapInfo(ctx context.Context) (*registry.SwapInfo, error)
}

// ServiceConfig holds dependencies for the swap service.
type ServiceConfig struct {
	Registry RegistryLoader
	Chain    BlockchainClient
	Builder  InstructionBuilder // defaults to the SPL Token Swap builder
	Logger   *logrus.Logger
}

// Service is the multi-hop swap routing and transaction-assembly engine.
// All methods other than Load require a loaded snapshot.
type Service struct {
	loader  RegistryLoader
	chain   BlockchainClient
	builder InstructionBuilder
	logger  *logrus.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("orcaswap: registry loader is required")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("orcaswap: blockchain client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	s := &Service{
		loader:  cfg.Registry,
		chain:   cfg.Chain,
		builder: cfg.Builder,
		logger:  cfg.Logger,
	}
	if s.builder == nil {
		s.builder = NewTokenSwapBuilder(cfg.Chain)
	}
	return s, nil
}

// Load fetches the swap-info registry and precomputes the route table.
// Idempotent: a no-op when a snapshot is already loaded. Use Reload to
// replace the snapshot wholesale.
func (s *Service) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.snapshot != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Reload(ctx)
}

// Reload always fetches a fresh snapshot and swaps it in atomically.
// In-flight operations keep using the snapshot they started with.
func (s *Service) Reload(ctx context.Context) error {
	info, err := s.loader.GetSwapInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to load swap info: %w", err)
	}
	snap, err := NewSnapshot(info)
	if err != nil {
		return fmt.Errorf("failed to build swap snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"tokens": len(snap.Tokens),
		"pools":  len(snap.Pools),
		"pairs":  len(snap.Routes),
	}).Info("swap info loaded")
	return nil
}

// Snapshot returns the current snapshot, or nil before Load.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Service) requireSnapshot() (*Snapshot, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrSwapInfoUnavailable
	}
	return snap, nil
}

// GetMint resolves a token name to its mint address.
func (s *Service) GetMint(tokenName string) (solana.PublicKey, bool) {
	snap := s.Snapshot()
	if snap == nil {
		return solana.PublicKey{}, false
	}
	return snap.GetMint(tokenName)
}

// FindPossibleDestinationMints enumerates every token reachable via any
// route originating at fromMint's token, deduplicated.
func (s *Service) FindPossibleDestinationMints(fromMint solana.PublicKey) ([]solana.PublicKey, error) {
	snap, err := s.requireSnapshot()
	if err != nil {
		return nil, err
	}
	from, ok := snap.TokenByMint(fromMint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, fromMint)
	}

	seen := make(map[string]struct{})
	var mints []solana.PublicKey
	for key := range snap.Routes {
		first, second := pairTokens(key)
		var other string
		switch from.Name {
		case first:
			other = second
		case second:
			other = first
		default:
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		if t, ok := snap.Tokens[other]; ok {
			mints = append(mints, t.Mint)
		}
	}
	return mints, nil
}

// FindRoutes returns the precomputed routes between two mints, as pool-name
// chains, without touching chain state.
func (s *Service) FindRoutes(fromMint, toMint solana.PublicKey) ([]Route, error) {
	snap, err := s.requireSnapshot()
	if err != nil {
		return nil, err
	}
	from, ok := snap.TokenByMint(fromMint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, fromMint)
	}
	to, ok := snap.TokenByMint(toMint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, toMint)
	}
	return snap.Routes[CanonicalPairKey(from.Name, to.Name)], nil
}

// GetTradablePoolsPairs resolves every candidate route between two mints
// into hydrated pools-pairs. Routes longer than two hops are not yet
// supported and are dropped; per-route hydration failures drop the route,
// not the call.
func (s *Service) GetTradablePoolsPairs(ctx context.Context, fromMint, toMint solana.PublicKey) ([]PoolsPair, error) {
	snap, err := s.requireSnapshot()
	if err != nil {
		return nil, err
	}
	from, ok := snap.TokenByMint(fromMint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, fromMint)
	}
	to, ok := snap.TokenByMint(toMint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, toMint)
	}

	routes := snap.Routes[CanonicalPairKey(from.Name, to.Name)]

	pairs := make([]PoolsPair, 0, len(routes))
	for _, route := range routes {
		if len(route) == 0 || len(route) > 2 {
			continue
		}
		pair, err := s.hydrateRoute(ctx, snap, route, from.Name, to.Name)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"route": route,
				"err":   err,
			}).Warn("dropping route: hydration failed")
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// hydrateRoute orients each pool of the route in trade direction and
// fetches its current vault balances. Each call produces its own hydrated
// copies; nothing mutates a pool's reserves after hydration.
func (s *Service) hydrateRoute(ctx context.Context, snap *Snapshot, route Route, fromToken, toToken string) (PoolsPair, error) {
	pair := make(PoolsPair, 0, len(route))

	input := fromToken
	for _, poolName := range route {
		base, ok := snap.Pools[poolName]
		if !ok {
			return nil, fmt.Errorf("unknown pool %s", poolName)
		}
		if !poolContains(&base, input) {
			return nil, fmt.Errorf("pool %s does not trade %s", poolName, input)
		}
		oriented := base
		if base.TokenBName == input {
			oriented = base.Reversed()
		}

		hydrated, err := s.hydratePool(ctx, oriented)
		if err != nil {
			return nil, err
		}
		pair = append(pair, hydrated)
		input = hydrated.TokenBName
	}

	if input != toToken {
		return nil, fmt.Errorf("route does not terminate at %s", toToken)
	}
	return pair, nil
}

func (s *Service) hydratePool(ctx context.Context, pool Pool) (Pool, error) {
	balA, err := s.chain.GetTokenAccountBalance(ctx, pool.TokenAccountA)
	if err != nil {
		return Pool{}, fmt.Errorf("failed to fetch vault A balance: %w", err)
	}
	balB, err := s.chain.GetTokenAccountBalance(ctx, pool.TokenAccountB)
	if err != nil {
		return Pool{}, fmt.Errorf("failed to fetch vault B balance: %w", err)
	}
	pool.TokenABalance = &balA
	pool.TokenBBalance = &balB
	return pool, nil
}

// FindBestPoolsPairForInputAmount returns the candidate yielding the
// strictly greatest simulated output for a known input amount. Ties keep
// the first-seen candidate. Nil when no candidate yields a valid output.
func FindBestPoolsPairForInputAmount(inputAmount uint64, pairs []PoolsPair) *PoolsPair {
	var best *PoolsPair
	var bestOut uint64
	for i := range pairs {
		out, ok := pairs[i].OutputAmount(inputAmount)
		if !ok {
			continue
		}
		if out > bestOut || best == nil {
			best = &pairs[i]
			bestOut = out
		}
	}
	return best
}

// FindBestPoolsPairForEstimatedAmount returns the candidate requiring the
// strictly smallest input for a target output. The sentinel starts at the
// maximum representable amount so any valid candidate replaces it.
func FindBestPoolsPairForEstimatedAmount(estimatedAmount uint64, pairs []PoolsPair) *PoolsPair {
	var best *PoolsPair
	bestIn := uint64(math.MaxUint64)
	for i := range pairs {
		in, ok := pairs[i].InputAmount(estimatedAmount)
		if !ok {
			continue
		}
		if in < bestIn {
			best = &pairs[i]
			bestIn = in
		}
	}
	return best
}

// GetLiquidityProviderFees computes the pool fee taken by each hop, in that
// hop's input token base units.
func (s *Service) GetLiquidityProviderFees(pair PoolsPair, inputAmount uint64, slippageBps uint16) ([]uint64, error) {
	if len(pair) == 0 || len(pair) > 2 {
		return nil, ErrInvalidPoolsPair
	}
	if !pair.Hydrated() {
		return nil, ErrPoolsNotHydrated
	}

	fees := make([]uint64, 0, len(pair))
	amount := inputAmount
	for i := range pair {
		fee, ok := pair[i].LiquidityProviderFee(amount)
		if !ok {
			return nil, fmt.Errorf("%w: hop %d", ErrInvalidPoolsPair, i)
		}
		fees = append(fees, fee)
		if i+1 < len(pair) {
			next, ok := pair[i].MinimumAmountOut(amount, slippageBps)
			if !ok {
				return nil, fmt.Errorf("%w: hop %d", ErrInvalidPoolsPair, i)
			}
			amount = next
		}
	}
	return fees, nil
}
