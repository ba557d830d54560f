package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/orcaswap"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/storage"
)

// fakeChain backs the swap service with in-memory chain state.
type fakeChain struct {
	mu sync.Mutex

	rent     uint64
	balances map[solana.PublicKey]uint64
	sent     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		rent:     2_039_280,
		balances: make(map[solana.PublicKey]uint64),
	}
}

func (f *fakeChain) GetMinimumBalanceForRentExemption(ctx context.Context, span uint64) (uint64, error) {
	return f.rent, nil
}

func (f *fakeChain) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.balances[account]
	if !ok {
		return 0, fmt.Errorf("unknown token account %s", account)
	}
	return bal, nil
}

func (f *fakeChain) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	return true, nil
}

func (f *fakeChain) CheckIfAssociatedTokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	return true, nil
}

func (f *fakeChain) PrepareTransaction(ctx context.Context, params chain.PrepareTransactionParams) (*chain.PreparedTransaction, error) {
	return &chain.PreparedTransaction{AccountsCreationFee: params.AccountsCreationFee}, nil
}

func (f *fakeChain) SerializeAndSend(ctx context.Context, prepared *chain.PreparedTransaction, isSimulation bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return fmt.Sprintf("sig-%d", f.sent), nil
}

func (f *fakeChain) WaitForConfirmation(ctx context.Context, signature string) error {
	return nil
}

// fakeSwapCache captures recorded swaps.
type fakeSwapCache struct {
	mu        sync.Mutex
	recorded  []*models.SwapRecord
	published []*models.SwapRecord
}

func (f *fakeSwapCache) AddRecentSwap(ctx context.Context, swap *models.SwapRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, swap)
	return nil
}

func (f *fakeSwapCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorded, nil
}

func (f *fakeSwapCache) PublishSwap(ctx context.Context, swap *models.SwapRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, swap)
	return nil
}

func (f *fakeSwapCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapRecord, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeSwapCache) CacheSwapInfo(ctx context.Context, payload []byte, ttl time.Duration) error {
	return nil
}

func (f *fakeSwapCache) GetCachedSwapInfo(ctx context.Context) ([]byte, error) {
	return nil, nil
}

func (f *fakeSwapCache) Ping(ctx context.Context) error { return nil }
func (f *fakeSwapCache) Close() error                   { return nil }

var _ storage.SwapCache = (*fakeSwapCache)(nil)

type fakeRegistry struct {
	info *registry.SwapInfo
}

func (f *fakeRegistry) GetSwapInfo(ctx context.Context) (*registry.SwapInfo, error) {
	return f.info, nil
}

// swapFixture is a single-pool universe: ABC trades against XYZ.
type swapFixture struct {
	abcMint solana.PublicKey
	xyzMint solana.PublicKey
	chain   *fakeChain
	cache   *fakeSwapCache
	service *orcaswap.Service
	signer  solana.PrivateKey
}

func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()

	fx := &swapFixture{
		abcMint: solana.NewWallet().PublicKey(),
		xyzMint: solana.NewWallet().PublicKey(),
		chain:   newFakeChain(),
		cache:   &fakeSwapCache{},
		signer:  solana.NewWallet().PrivateKey,
	}

	vaultA := solana.NewWallet().PublicKey()
	vaultB := solana.NewWallet().PublicKey()
	fx.chain.balances[vaultA] = 1_000_000_000
	fx.chain.balances[vaultB] = 2_000_000_000

	info := &registry.SwapInfo{
		Tokens: map[string]registry.TokenInfo{
			"ABC": {Mint: fx.abcMint.String(), Decimals: 6},
			"XYZ": {Mint: fx.xyzMint.String(), Decimals: 6},
		},
		Pools: map[string]registry.PoolConfig{
			"ABC/XYZ": {
				Account:        solana.NewWallet().PublicKey().String(),
				Authority:      solana.NewWallet().PublicKey().String(),
				PoolTokenMint:  solana.NewWallet().PublicKey().String(),
				TokenAName:     "ABC",
				TokenBName:     "XYZ",
				TokenAccountA:  vaultA.String(),
				TokenAccountB:  vaultB.String(),
				FeeAccount:     solana.NewWallet().PublicKey().String(),
				FeeNumerator:   30,
				FeeDenominator: 10_000,
			},
		},
		ProgramIDs: registry.ProgramIDSet{
			TokenSwap: solana.NewWallet().PublicKey().String(),
			Token:     solana.TokenProgramID.String(),
		},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc, err := orcaswap.NewService(orcaswap.ServiceConfig{
		Registry: &fakeRegistry{info: info},
		Chain:    fx.chain,
		Logger:   logger,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	fx.service = svc
	return fx
}

func (fx *swapFixture) handlers() *Handlers {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &Handlers{
		Swap:                 fx.service,
		Chain:                fx.chain,
		Cache:                fx.cache,
		Signer:               fx.signer,
		Logger:               logger,
		LamportsPerSignature: 5_000,
	}
}

func postSwap(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/swap", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.SwapExecute(e.NewContext(req, rec)))
	return rec
}

func TestSwapExecuteRecordsAmountsAndFees(t *testing.T) {
	fx := newSwapFixture(t)
	h := fx.handlers()

	body := fmt.Sprintf(
		`{"from_mint":%q,"to_mint":%q,"amount":10,"slippage_bps":100}`,
		fx.abcMint, fx.xyzMint,
	)
	rec := postSwap(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SwapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sig-1", resp.TransactionID)

	require.Len(t, fx.cache.recorded, 1)
	swap := fx.cache.recorded[0]
	assert.Equal(t, "sig-1", swap.TransactionID)
	assert.Equal(t, fx.abcMint.String(), swap.SourceMint)
	assert.Equal(t, fx.xyzMint.String(), swap.DestinationMint)
	assert.Equal(t, uint64(10_000_000), swap.AmountIn)
	assert.False(t, swap.Transitive)

	// minimum-out matches the route math for the requested slippage
	pairs, err := fx.service.GetTradablePoolsPairs(context.Background(), fx.abcMint, fx.xyzMint)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	wantMinOut, ok := pairs[0][0].MinimumAmountOut(10_000_000, 100)
	require.True(t, ok)
	assert.Equal(t, wantMinOut, swap.MinimumAmountOut)
	assert.NotZero(t, swap.MinimumAmountOut)

	// direct swap between two existing wallets costs one signature fee and
	// creates nothing
	assert.Equal(t, uint64(5_000), swap.FeeTransaction)
	assert.Zero(t, swap.FeeAccountBalances)
	assert.Zero(t, swap.FeeDeposit)

	// the record is also published for subscribers
	require.Len(t, fx.cache.published, 1)
	assert.Equal(t, swap.TransactionID, fx.cache.published[0].TransactionID)
}

func TestSwapExecuteWithoutSigner(t *testing.T) {
	fx := newSwapFixture(t)
	h := fx.handlers()
	h.Signer = nil

	body := fmt.Sprintf(`{"from_mint":%q,"to_mint":%q,"amount":1}`, fx.abcMint, fx.xyzMint)
	rec := postSwap(t, h, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.cache.recorded)
}
