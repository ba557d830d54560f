package orcaswap

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLamportsPerSig = uint64(5_000)
	testMinRent        = uint64(2_039_280)
)

func feeParams(fx *testFixture, pair PoolsPair) NetworkFeesParams {
	return NetworkFeesParams{
		Owner:                solana.NewWallet().PublicKey(),
		FromWallet:           Wallet{Pubkey: solana.NewWallet().PublicKey(), Mint: fx.abcMint},
		ToWallet:             &Wallet{Pubkey: solana.NewWallet().PublicKey(), Mint: fx.usdcMint},
		BestPoolsPair:        pair,
		LamportsPerSignature: testLamportsPerSig,
		MinRentExemption:     testMinRent,
	}
}

func TestGetNetworkFeesDirect(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.abcMint, fx.usdcMint)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	// SPL source, destination exists: a single signature fee and nothing else
	fees, err := svc.GetNetworkFees(context.Background(), feeParams(fx, pairs[0]))
	require.NoError(t, err)
	assert.Equal(t, testLamportsPerSig, fees.Transaction)
	assert.Zero(t, fees.AccountBalances)
	assert.Zero(t, fees.Deposit)
}

func TestGetNetworkFeesDirectMissingDestination(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.abcMint, fx.usdcMint)
	require.NoError(t, err)

	params := feeParams(fx, pairs[0])
	params.ToWallet = nil

	fees, err := svc.GetNetworkFees(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, testLamportsPerSig, fees.Transaction)
	assert.Equal(t, testMinRent, fees.AccountBalances)
	assert.Zero(t, fees.Deposit)
}

func TestGetNetworkFeesNativeSOLSource(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.solMint, fx.usdcMint)
	require.NoError(t, err)

	params := feeParams(fx, pairs[0])
	params.FromWallet.Mint = fx.solMint

	// wrapping adds a scratch-account signature and a refundable deposit
	fees, err := svc.GetNetworkFees(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 2*testLamportsPerSig, fees.Transaction)
	assert.Equal(t, testMinRent, fees.Deposit)
	assert.Zero(t, fees.AccountBalances)
}

func TestGetNetworkFeesTransitive(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.solMint, fx.abcMint)
	require.NoError(t, err)
	require.Len(t, pairs[0], 2)

	params := feeParams(fx, pairs[0])
	params.FromWallet.Mint = fx.solMint
	params.ToWallet = nil
	// intermediary USDC account missing from the wallet set: forces the
	// setup transaction ahead of the swap

	fees, err := svc.GetNetworkFees(context.Background(), params)
	require.NoError(t, err)

	// two transactions plus the SOL wrapping surcharge
	assert.Equal(t, 2*testLamportsPerSig+testLamportsPerSig, fees.Transaction)
	// rent for the intermediary account and the destination account
	assert.Equal(t, 2*testMinRent, fees.AccountBalances)
	// the WSOL wrap deposit is refunded on close
	assert.Equal(t, testMinRent, fees.Deposit)
}

func TestGetNetworkFeesTransitiveIntermediaryExists(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.solMint, fx.abcMint)
	require.NoError(t, err)

	params := feeParams(fx, pairs[0])
	params.MyWalletsMints = []solana.PublicKey{fx.usdcMint}
	fc.ataExists[ataKey(params.Owner, fx.usdcMint)] = true

	fees, err := svc.GetNetworkFees(context.Background(), params)
	require.NoError(t, err)

	// one transaction, no intermediary rent, destination already exists
	assert.Equal(t, testLamportsPerSig, fees.Transaction)
	assert.Zero(t, fees.AccountBalances)
	assert.Zero(t, fees.Deposit)
}

func TestGetNetworkFeesWSOLIntermediary(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	// synthetic USDC -> SOL -> ABC pair
	r1, r2 := uint64(1_000_000), uint64(1_000_000)
	pair := PoolsPair{
		{TokenAName: "USDC", TokenBName: "SOL", TokenABalance: &r1, TokenBBalance: &r2, FeeNumerator: 30, FeeDenominator: 10_000},
		{TokenAName: "SOL", TokenBName: "ABC", TokenABalance: &r1, TokenBBalance: &r2, FeeNumerator: 30, FeeDenominator: 10_000},
	}

	params := feeParams(fx, pair)

	fees, err := svc.GetNetworkFees(context.Background(), params)
	require.NoError(t, err)

	// a WSOL intermediary rides inside the swap transaction as a scratch
	// account: no second transaction, just the wrap signature and deposit
	assert.Equal(t, 2*testLamportsPerSig, fees.Transaction)
	assert.Equal(t, testMinRent, fees.Deposit)
	assert.Zero(t, fees.AccountBalances)
}

func TestGetNetworkFeesInvalidPair(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	_, err := svc.GetNetworkFees(context.Background(), feeParams(fx, PoolsPair{}))
	assert.ErrorIs(t, err, ErrInvalidPoolsPair)
}
