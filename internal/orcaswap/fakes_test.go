package orcaswap

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
)

// fakeChain is an in-memory BlockchainClient.
type fakeChain struct {
	mu sync.Mutex

	rent       uint64
	balances   map[solana.PublicKey]uint64
	balanceErr map[solana.PublicKey]error
	ataExists  map[string]bool

	sendErrs   []error // consumed one per SerializeAndSend call
	sent       int
	sims       []bool
	confirmErr error
	confirmed  []string
	prepared   int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		rent:       2_039_280,
		balances:   make(map[solana.PublicKey]uint64),
		balanceErr: make(map[solana.PublicKey]error),
		ataExists:  make(map[string]bool),
	}
}

func ataKey(owner, mint solana.PublicKey) string {
	return owner.String() + "/" + mint.String()
}

func (f *fakeChain) GetMinimumBalanceForRentExemption(ctx context.Context, span uint64) (uint64, error) {
	return f.rent, nil
}

func (f *fakeChain) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.balanceErr[account]; ok {
		return 0, err
	}
	bal, ok := f.balances[account]
	if !ok {
		return 0, fmt.Errorf("unknown token account %s", account)
	}
	return bal, nil
}

func (f *fakeChain) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.balances[pubkey]
	return ok, nil
}

func (f *fakeChain) CheckIfAssociatedTokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ataExists[ataKey(owner, mint)], nil
}

func (f *fakeChain) PrepareTransaction(ctx context.Context, params chain.PrepareTransactionParams) (*chain.PreparedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared++
	return &chain.PreparedTransaction{AccountsCreationFee: params.AccountsCreationFee}, nil
}

func (f *fakeChain) SerializeAndSend(ctx context.Context, prepared *chain.PreparedTransaction, isSimulation bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	f.sims = append(f.sims, isSimulation)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("sig-%d", f.sent), nil
}

func (f *fakeChain) WaitForConfirmation(ctx context.Context, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, signature)
	return nil
}

// fakeRegistry serves a fixed swap-info payload.
type fakeRegistry struct {
	info *registry.SwapInfo
	err  error
}

func (f *fakeRegistry) GetSwapInfo(ctx context.Context) (*registry.SwapInfo, error) {
	return f.info, f.err
}

// testFixture is a small registry universe: SOL and ABC both trade against
// USDC, so SOL<->ABC is reachable only transitively.
type testFixture struct {
	info *registry.SwapInfo

	solMint  solana.PublicKey
	usdcMint solana.PublicKey
	abcMint  solana.PublicKey

	// vault pubkeys by "<pool>.<side>"
	vaults map[string]solana.PublicKey
}

func newTestFixture() *testFixture {
	fx := &testFixture{
		solMint:  chain.WrappedSOLMint,
		usdcMint: solana.NewWallet().PublicKey(),
		abcMint:  solana.NewWallet().PublicKey(),
		vaults:   make(map[string]solana.PublicKey),
	}

	newPool := func(name, tokenA, tokenB string) registry.PoolConfig {
		a := solana.NewWallet().PublicKey()
		b := solana.NewWallet().PublicKey()
		fx.vaults[name+".A"] = a
		fx.vaults[name+".B"] = b
		return registry.PoolConfig{
			Account:        solana.NewWallet().PublicKey().String(),
			Authority:      solana.NewWallet().PublicKey().String(),
			PoolTokenMint:  solana.NewWallet().PublicKey().String(),
			TokenAName:     tokenA,
			TokenBName:     tokenB,
			TokenAccountA:  a.String(),
			TokenAccountB:  b.String(),
			FeeAccount:     solana.NewWallet().PublicKey().String(),
			FeeNumerator:   30,
			FeeDenominator: 10_000,
		}
	}

	fx.info = &registry.SwapInfo{
		Tokens: map[string]registry.TokenInfo{
			"SOL":  {Mint: fx.solMint.String(), Decimals: 9},
			"USDC": {Mint: fx.usdcMint.String(), Decimals: 6},
			"ABC":  {Mint: fx.abcMint.String(), Decimals: 6},
		},
		Pools: map[string]registry.PoolConfig{
			"SOL/USDC": newPool("SOL/USDC", "SOL", "USDC"),
			"ABC/USDC": newPool("ABC/USDC", "ABC", "USDC"),
		},
		ProgramIDs: registry.ProgramIDSet{
			TokenSwap: solana.NewWallet().PublicKey().String(),
			Token:     solana.TokenProgramID.String(),
		},
	}
	return fx
}

// seedBalances hydratable reserves for every pool vault.
func (fx *testFixture) seedBalances(fc *fakeChain) {
	fc.balances[fx.vaults["SOL/USDC.A"]] = 1_000_000_000_000 // SOL side
	fc.balances[fx.vaults["SOL/USDC.B"]] = 50_000_000_000    // USDC side
	fc.balances[fx.vaults["ABC/USDC.A"]] = 800_000_000_000   // ABC side
	fc.balances[fx.vaults["ABC/USDC.B"]] = 40_000_000_000    // USDC side
}

func newTestService(t *testing.T, fx *testFixture, fc *fakeChain) *Service {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc, err := NewService(ServiceConfig{
		Registry: &fakeRegistry{info: fx.info},
		Chain:    fc,
		Logger:   logger,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}
