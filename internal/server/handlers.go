package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/gates"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/orcaswap"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/storage"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Swap    *orcaswap.Service          // swap routing and assembly engine
	Chain   orcaswap.BlockchainClient  // blockchain RPC boundary
	Cache   storage.SwapCache          // Redis-backed swap data cache
	Store   storage.SwapStore          // ClickHouse swap history (optional)
	Gates   *gates.Store               // Redis-backed feature gates
	Signer  solana.PrivateKey          // owner key; swaps disabled when empty
	DevMode bool                       // Enable detailed error responses in development
	Logger  *logrus.Logger             // Structured logger

	LamportsPerSignature uint64
}

// err returns a standardized JSON error response.
// In dev mode, includes additional error details for debugging.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports liveness and whether a swap-info snapshot is loaded
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Loaded: h.Swap.Snapshot() != nil})
}

// SwapInfo summarizes the loaded registry snapshot
func (h *Handlers) SwapInfo(c echo.Context) error {
	snap := h.Swap.Snapshot()
	if snap == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap info not loaded", nil)
	}
	return c.JSON(http.StatusOK, SwapInfoResponse{
		Tokens:           len(snap.Tokens),
		Pools:            len(snap.Pools),
		Pairs:            len(snap.Routes),
		TokenSwapProgram: snap.ProgramIDs.TokenSwap.String(),
	})
}

// Mint resolves a token symbol to its mint address
func (h *Handlers) Mint(c echo.Context) error {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		return h.err(c, http.StatusBadRequest, "invalid symbol", nil)
	}
	mint, ok := h.Swap.GetMint(symbol)
	if !ok {
		return h.err(c, http.StatusNotFound, "token not found", nil)
	}
	return c.JSON(http.StatusOK, MintResponse{Symbol: symbol, Mint: mint.String()})
}

// Routes lists the precomputed routes between two mints, as pool-name
// chains. Query parameters: from, to.
func (h *Handlers) Routes(c echo.Context) error {
	fromMint, err := solana.PublicKeyFromBase58(c.QueryParam("from"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid from mint", nil)
	}
	toMint, err := solana.PublicKeyFromBase58(c.QueryParam("to"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid to mint", nil)
	}

	routes, err := h.Swap.FindRoutes(fromMint, toMint)
	if err != nil {
		if errors.Is(err, orcaswap.ErrTokenNotFound) {
			return h.err(c, http.StatusNotFound, "token not found", nil)
		}
		return h.err(c, http.StatusServiceUnavailable, "swap info not loaded", nil)
	}

	out := make([][]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, []string(r))
	}
	return c.JSON(http.StatusOK, RoutesResponse{Routes: out})
}

// Destinations lists mints reachable from the given source mint
func (h *Handlers) Destinations(c echo.Context) error {
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.Param("mint")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", nil)
	}

	mints, err := h.Swap.FindPossibleDestinationMints(mint)
	if err != nil {
		if errors.Is(err, orcaswap.ErrTokenNotFound) {
			return h.err(c, http.StatusNotFound, "token not found", nil)
		}
		return h.err(c, http.StatusServiceUnavailable, "swap info not loaded", nil)
	}

	out := make([]string, 0, len(mints))
	for _, m := range mints {
		out = append(out, m.String())
	}
	return c.JSON(http.StatusOK, DestinationsResponse{Mints: out})
}

// Quote finds the best route for a prospective trade and simulates it.
// Query parameters: from, to (mints), amount (human units), slippage_bps.
func (h *Handlers) Quote(c echo.Context) error {
	fromMint, err := solana.PublicKeyFromBase58(c.QueryParam("from"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid from mint", nil)
	}
	toMint, err := solana.PublicKeyFromBase58(c.QueryParam("to"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid to mint", nil)
	}
	amount, err := strconv.ParseFloat(c.QueryParam("amount"), 64)
	if err != nil || amount <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", nil)
	}
	slippageBps := uint16(100)
	if s := c.QueryParam("slippage_bps"); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippage_bps", nil)
		}
		slippageBps = uint16(n)
	}

	snap := h.Swap.Snapshot()
	if snap == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap info not loaded", nil)
	}
	sourceToken, ok := snap.TokenByMint(fromMint)
	if !ok {
		return h.err(c, http.StatusNotFound, "token not found", nil)
	}
	amountIn := orcaswap.BaseUnits(amount, sourceToken.Decimals)

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	pairs, err := h.Swap.GetTradablePoolsPairs(ctx, fromMint, toMint)
	if err != nil {
		if errors.Is(err, orcaswap.ErrTokenNotFound) {
			return h.err(c, http.StatusNotFound, "token not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to resolve routes", nil)
	}

	best := orcaswap.FindBestPoolsPairForInputAmount(amountIn, pairs)
	if best == nil {
		return h.err(c, http.StatusNotFound, "no tradable route", nil)
	}

	estimated, _ := best.OutputAmount(amountIn)
	fees, err := h.Swap.GetLiquidityProviderFees(*best, amountIn, slippageBps)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to compute fees", nil)
	}

	route := make([]string, 0, len(*best))
	minOut := amountIn
	for i := range *best {
		route = append(route, (*best)[i].Name)
		next, ok := (*best)[i].MinimumAmountOut(minOut, slippageBps)
		if !ok {
			return h.err(c, http.StatusInternalServerError, "failed to compute minimum out", nil)
		}
		minOut = next
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		Route:                 route,
		AmountIn:              amountIn,
		EstimatedAmountOut:    estimated,
		MinimumAmountOut:      minOut,
		LiquidityProviderFees: fees,
	})
}

// Fees estimates the network fees of a prospective swap, bucketed
func (h *Handlers) Fees(c echo.Context) error {
	var req FeesRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	fromMint, err := solana.PublicKeyFromBase58(req.FromMint)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid from_mint", nil)
	}
	toMint, err := solana.PublicKeyFromBase58(req.ToMint)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid to_mint", nil)
	}
	if h.Signer == nil {
		return h.err(c, http.StatusBadRequest, "no signer configured", nil)
	}
	owner := h.Signer.PublicKey()

	myMints := make([]solana.PublicKey, 0, len(req.MyWalletsMints))
	for _, m := range req.MyWalletsMints {
		pk, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid my_wallets_mints entry", nil)
		}
		myMints = append(myMints, pk)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	pairs, err := h.Swap.GetTradablePoolsPairs(ctx, fromMint, toMint)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resolve routes", nil)
	}
	snap := h.Swap.Snapshot()
	sourceToken, ok := snap.TokenByMint(fromMint)
	if !ok {
		return h.err(c, http.StatusNotFound, "token not found", nil)
	}
	amountIn := orcaswap.BaseUnits(req.Amount, sourceToken.Decimals)
	best := orcaswap.FindBestPoolsPairForInputAmount(amountIn, pairs)
	if best == nil {
		return h.err(c, http.StatusNotFound, "no tradable route", nil)
	}

	minRent, err := h.Chain.GetMinimumBalanceForRentExemption(ctx, chain.TokenAccountSpan)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to fetch rent exemption", nil)
	}

	toWallet, err := h.resolveWallet(ctx, owner, toMint)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resolve destination", nil)
	}

	fees, err := h.Swap.GetNetworkFees(ctx, orcaswap.NetworkFeesParams{
		Owner:                owner,
		MyWalletsMints:       myMints,
		FromWallet:           orcaswap.Wallet{Mint: fromMint},
		ToWallet:             toWallet,
		BestPoolsPair:        *best,
		LamportsPerSignature: h.LamportsPerSignature,
		MinRentExemption:     minRent,
	})
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to estimate fees", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, FeesResponse{
		Transaction:     fees.Transaction,
		AccountBalances: fees.AccountBalances,
		Deposit:         fees.Deposit,
		Total:           fees.Total(),
	})
}

// SwapExecute runs a swap with the configured signer, honoring the
// feature gates
func (h *Handlers) SwapExecute(c echo.Context) error {
	if h.Signer == nil {
		return h.err(c, http.StatusBadRequest, "no signer configured", nil)
	}

	var req SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	fromMint, err := solana.PublicKeyFromBase58(req.FromMint)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid from_mint", nil)
	}
	toMint, err := solana.PublicKeyFromBase58(req.ToMint)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid to_mint", nil)
	}
	if req.Amount <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", nil)
	}

	ctx := c.Request().Context()

	if h.Gates != nil {
		if !h.Gates.IsEnabled(ctx, gates.SwapEnabled) {
			return h.err(c, http.StatusForbidden, "swaps are disabled", nil)
		}
		if h.Gates.IsEnabled(ctx, gates.SimulationOnly) {
			req.Simulation = true
		}
	}

	pairs, err := h.Swap.GetTradablePoolsPairs(ctx, fromMint, toMint)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resolve routes", nil)
	}
	snap := h.Swap.Snapshot()
	sourceToken, ok := snap.TokenByMint(fromMint)
	if !ok {
		return h.err(c, http.StatusNotFound, "token not found", nil)
	}
	amountIn := orcaswap.BaseUnits(req.Amount, sourceToken.Decimals)
	best := orcaswap.FindBestPoolsPairForInputAmount(amountIn, pairs)
	if best == nil {
		return h.err(c, http.StatusNotFound, "no tradable route", nil)
	}
	if len(*best) == 2 && h.Gates != nil && !h.Gates.IsEnabled(ctx, gates.TransitiveEnabled) {
		return h.err(c, http.StatusForbidden, "transitive swaps are disabled", nil)
	}

	owner := h.Signer.PublicKey()
	fromWallet, err := h.resolveWallet(ctx, owner, fromMint)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resolve source wallet", nil)
	}
	if fromWallet == nil {
		return h.err(c, http.StatusBadRequest, "source wallet does not exist", nil)
	}
	toWallet, err := h.resolveWallet(ctx, owner, toMint)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resolve destination wallet", nil)
	}

	minOut := amountIn
	for i := range *best {
		next, ok := (*best)[i].MinimumAmountOut(minOut, req.SlippageBps)
		if !ok {
			return h.err(c, http.StatusInternalServerError, "failed to compute minimum out", nil)
		}
		minOut = next
	}
	fees := h.estimateFees(ctx, owner, *fromWallet, toWallet, *best)

	result, err := h.Swap.Swap(ctx, orcaswap.SwapParams{
		PrepareSwapParams: orcaswap.PrepareSwapParams{
			Owner:         h.Signer,
			FromWallet:    fromWallet.Pubkey,
			FromMint:      fromMint,
			ToWallet:      walletPubkey(toWallet),
			ToMint:        toMint,
			BestPoolsPair: *best,
			Amount:        req.Amount,
			SlippageBps:   req.SlippageBps,
		},
		IsSimulation: req.Simulation,
	})
	if err != nil {
		h.Logger.WithError(err).Error("swap execution failed")
		return h.err(c, http.StatusInternalServerError, "swap failed", map[string]any{"err": err.Error()})
	}

	h.recordSwap(req, fromMint, toMint, owner, amountIn, minOut, fees, *best, result)

	resp := SwapResponse{TransactionID: result.TransactionID, Simulation: req.Simulation}
	if result.NewWalletAddress != nil {
		resp.NewWalletAddress = result.NewWalletAddress.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// resolveWallet derives the owner's token account for a mint. Returns nil
// when the account does not exist (or when the mint is native SOL, whose
// scratch accounts are created per attempt).
func (h *Handlers) resolveWallet(ctx context.Context, owner, mint solana.PublicKey) (*orcaswap.Wallet, error) {
	if mint.Equals(chain.WrappedSOLMint) {
		return &orcaswap.Wallet{Pubkey: owner, Mint: mint}, nil
	}
	ata, _, err := chain.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	exists, err := h.Chain.CheckIfAssociatedTokenAccountExists(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &orcaswap.Wallet{Pubkey: ata, Mint: mint}, nil
}

func walletPubkey(w *orcaswap.Wallet) *solana.PublicKey {
	if w == nil {
		return nil
	}
	pk := w.Pubkey
	return &pk
}

// estimateFees estimates the network fees of the swap being recorded, best
// effort: a failed estimate never blocks the swap itself.
func (h *Handlers) estimateFees(
	ctx context.Context,
	owner solana.PublicKey,
	fromWallet orcaswap.Wallet,
	toWallet *orcaswap.Wallet,
	pair orcaswap.PoolsPair,
) *orcaswap.FeeAmount {
	minRent, err := h.Chain.GetMinimumBalanceForRentExemption(ctx, chain.TokenAccountSpan)
	if err != nil {
		h.Logger.WithError(err).Warn("failed to fetch rent exemption for fee estimate")
		return nil
	}

	// the signer holds the source wallet and, when resolved, the destination
	myMints := []solana.PublicKey{fromWallet.Mint}
	if toWallet != nil {
		myMints = append(myMints, toWallet.Mint)
	}

	fees, err := h.Swap.GetNetworkFees(ctx, orcaswap.NetworkFeesParams{
		Owner:                owner,
		MyWalletsMints:       myMints,
		FromWallet:           fromWallet,
		ToWallet:             toWallet,
		BestPoolsPair:        pair,
		LamportsPerSignature: h.LamportsPerSignature,
		MinRentExemption:     minRent,
	})
	if err != nil {
		h.Logger.WithError(err).Warn("failed to estimate network fees")
		return nil
	}
	return fees
}

// recordSwap persists and publishes the executed swap, best effort
func (h *Handlers) recordSwap(
	req SwapRequest,
	fromMint, toMint, owner solana.PublicKey,
	amountIn, minimumAmountOut uint64,
	fees *orcaswap.FeeAmount,
	pair orcaswap.PoolsPair,
	result *orcaswap.SwapResult,
) {
	rec := &models.SwapRecord{
		TransactionID:    result.TransactionID,
		Timestamp:        time.Now().UTC(),
		Owner:            owner.String(),
		SourceMint:       fromMint.String(),
		DestinationMint:  toMint.String(),
		AmountIn:         amountIn,
		MinimumAmountOut: minimumAmountOut,
		Transitive:       len(pair) == 2,
		Simulation:       req.Simulation,
	}
	if fees != nil {
		rec.FeeTransaction = fees.Transaction
		rec.FeeAccountBalances = fees.AccountBalances
		rec.FeeDeposit = fees.Deposit
	}
	for i := range pair {
		rec.Route = append(rec.Route, pair[i].Name)
	}
	if result.NewWalletAddress != nil {
		rec.NewWalletAddress = result.NewWalletAddress.String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.Cache.AddRecentSwap(ctx, rec); err != nil {
		h.Logger.WithError(err).Warn("failed to cache swap record")
	}
	if err := h.Cache.PublishSwap(ctx, rec); err != nil {
		h.Logger.WithError(err).Warn("failed to publish swap record")
	}
	if h.Store != nil {
		if err := h.Store.InsertSwap(ctx, rec); err != nil {
			h.Logger.WithError(err).Warn("failed to persist swap record")
		}
	}
}

// RecentSwaps returns the most recent swap records with optional limit
// parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// OwnerSwaps returns an owner's swap history from persistent storage
func (h *Handlers) OwnerSwaps(c echo.Context) error {
	if h.Store == nil {
		return h.err(c, http.StatusBadRequest, "swap history is not configured", nil)
	}
	owner := strings.TrimSpace(c.Param("owner"))
	if _, err := solana.PublicKeyFromBase58(owner); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	items, err := h.Store.ListSwapsByOwner(ctx, owner, 100)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GatesSet creates or updates a feature gate
func (h *Handlers) GatesSet(c echo.Context) error {
	var req GateSetRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := gates.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Gates.Set(ctx, req.Key, req.Enabled)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set gate", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// GatesUpdate updates an existing feature gate by key
func (h *Handlers) GatesUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := gates.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req GateUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Gates.Set(ctx, key, req.Enabled)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update gate", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// GatesGet retrieves a feature gate by key, 404 when never set
func (h *Handlers) GatesGet(c echo.Context) error {
	key := c.Param("key")
	if err := gates.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Gates.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gates.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "gate not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get gate", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// GatesList returns all feature gates
func (h *Handlers) GatesList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Gates.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list gates", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GatesDelete removes a feature gate, reverting it to its default
func (h *Handlers) GatesDelete(c echo.Context) error {
	key := c.Param("key")
	if err := gates.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Gates.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete gate", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
