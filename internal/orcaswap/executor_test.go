package orcaswap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/rpc"
)

func fastBackoff() *BackoffPolicy {
	return &BackoffPolicy{
		BaseDelay:  time.Millisecond,
		Multiplier: 2,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestDefaultRetryClassifier(t *testing.T) {
	assert.False(t, DefaultRetryClassifier(&chain.TransactionError{Detail: "InstructionError"}),
		"on-chain failures must never be retried")
	assert.False(t, DefaultRetryClassifier(&rpc.RPCError{Code: -32002, Message: "Transaction simulation failed: custom program error: 0x1"}))

	assert.True(t, DefaultRetryClassifier(rpc.ErrRateLimited))
	assert.True(t, DefaultRetryClassifier(chain.ErrConfirmationTimeout))
	assert.True(t, DefaultRetryClassifier(&rpc.RPCError{Code: rpc.CodeNodeBehind, Message: "node is behind"}))
	assert.True(t, DefaultRetryClassifier(errors.New("connection reset by peer")))
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), *fastBackoff(), DefaultRetryClassifier, func() error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryWithBackoffNonRetryable(t *testing.T) {
	fatal := &chain.TransactionError{Detail: "custom program error"}
	calls := 0
	err := retryWithBackoff(context.Background(), *fastBackoff(), DefaultRetryClassifier, func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable errors stop immediately")
}

func TestRetryWithBackoffElapsedBudget(t *testing.T) {
	policy := BackoffPolicy{
		BaseDelay:  time.Millisecond,
		Multiplier: 2,
		MaxDelay:   2 * time.Millisecond,
		MaxElapsed: 20 * time.Millisecond,
	}
	boom := errors.New("still down")
	err := retryWithBackoff(context.Background(), policy, DefaultRetryClassifier, func() error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRetryWithBackoffCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryWithBackoff(ctx, *fastBackoff(), DefaultRetryClassifier, func() error {
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func directSwapParams(fx *testFixture, svc *Service, t *testing.T) PrepareSwapParams {
	t.Helper()
	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.abcMint, fx.usdcMint)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	toWallet := solana.NewWallet().PublicKey()
	return PrepareSwapParams{
		Owner:         solana.NewWallet().PrivateKey,
		FromWallet:    solana.NewWallet().PublicKey(),
		FromMint:      fx.abcMint,
		ToWallet:      &toWallet,
		ToMint:        fx.usdcMint,
		BestPoolsPair: pairs[0],
		Amount:        10,
		SlippageBps:   100,
	}
}

func transitiveSwapParams(fx *testFixture, svc *Service, t *testing.T) PrepareSwapParams {
	t.Helper()
	pairs, err := svc.GetTradablePoolsPairs(context.Background(), fx.solMint, fx.abcMint)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Len(t, pairs[0], 2)

	owner := solana.NewWallet().PrivateKey
	return PrepareSwapParams{
		Owner:         owner,
		FromWallet:    owner.PublicKey(),
		FromMint:      fx.solMint,
		ToMint:        fx.abcMint,
		BestPoolsPair: pairs[0],
		Amount:        1,
		SlippageBps:   100,
	}
}

func TestSwapDirect(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	var states []SwapState
	result, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: directSwapParams(fx, svc, t),
		Backoff:           fastBackoff(),
		OnState:           func(s SwapState) { states = append(states, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, "sig-1", result.TransactionID)
	assert.Nil(t, result.NewWalletAddress)
	assert.Equal(t, 1, fc.sent)
	assert.Empty(t, fc.confirmed, "direct swaps return without awaiting confirmation")
	assert.Equal(t, []SwapState{StatePreparing, StateSubmittingFirst, StateDone}, states)
}

func TestSwapDirectSimulation(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	_, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: directSwapParams(fx, svc, t),
		IsSimulation:      true,
		Backoff:           fastBackoff(),
	})
	require.NoError(t, err)
	require.Len(t, fc.sims, 1)
	assert.True(t, fc.sims[0])
}

func TestSwapTransitive(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	var states []SwapState
	result, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: transitiveSwapParams(fx, svc, t),
		Backoff:           fastBackoff(),
		OnState:           func(s SwapState) { states = append(states, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, "sig-2", result.TransactionID, "the last submitted signature is returned")
	assert.NotNil(t, result.NewWalletAddress)
	assert.Equal(t, 2, fc.sent)
	assert.Equal(t, []string{"sig-1"}, fc.confirmed, "second leg waits for the first to confirm")
	assert.Equal(t, []SwapState{
		StatePreparing, StateSubmittingFirst, StateAwaitingConfirmation, StateSubmittingSecond, StateDone,
	}, states)
}

func TestSwapTransitiveSimulationFirstLegIsReal(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	_, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: transitiveSwapParams(fx, svc, t),
		IsSimulation:      true,
		Backoff:           fastBackoff(),
	})
	require.NoError(t, err)
	require.Len(t, fc.sims, 2)
	assert.False(t, fc.sims[0], "the first leg's side effects are required, it is never simulated")
	assert.True(t, fc.sims[1])
}

func TestSwapTransitiveSecondLegRetries(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	// first leg succeeds; second leg fails three times, then succeeds
	transient := errors.New("connection reset")
	fc.sendErrs = []error{nil, transient, transient, transient}

	result, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: transitiveSwapParams(fx, svc, t),
		Backoff:           fastBackoff(),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, fc.sent, "one first leg plus four second-leg attempts")
	assert.Equal(t, "sig-5", result.TransactionID)
}

func TestSwapTransitiveSecondLegFatal(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	fc.sendErrs = []error{nil, &chain.TransactionError{Detail: "custom program error: 0x10"}}

	var states []SwapState
	_, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: transitiveSwapParams(fx, svc, t),
		Backoff:           fastBackoff(),
		OnState:           func(s SwapState) { states = append(states, s) },
	})
	require.Error(t, err)

	var txErr *chain.TransactionError
	assert.ErrorAs(t, err, &txErr)
	assert.Equal(t, 2, fc.sent, "on-chain rejection must not be retried")
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestSwapFirstLegFailurePropagates(t *testing.T) {
	fx := newTestFixture()
	fc := newFakeChain()
	fx.seedBalances(fc)
	svc := newTestService(t, fx, fc)

	fc.sendErrs = []error{errors.New("blockhash not found")}

	_, err := svc.Swap(context.Background(), SwapParams{
		PrepareSwapParams: transitiveSwapParams(fx, svc, t),
		Backoff:           fastBackoff(),
	})
	require.Error(t, err)
	assert.Equal(t, 1, fc.sent, "first-leg failures are not retried here")
	assert.Empty(t, fc.confirmed)
}
