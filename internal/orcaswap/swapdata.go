package orcaswap

import (
	"github.com/gagliardetto/solana-go"
)

// SwapData is the per-hop amount plan for one swap attempt, tagged by hop
// count. Sealed: DirectSwapData and TransitiveSwapData are the only
// variants, and every consumer switches exhaustively.
type SwapData interface {
	isSwapData()
}

// DirectSwapData plans a single-hop swap.
type DirectSwapData struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

func (DirectSwapData) isSwapData() {}

// TransitiveSwapData plans a two-hop swap: From trades the source token
// into the intermediary, To trades the intermediary into the destination.
type TransitiveSwapData struct {
	From DirectSwapData
	To   DirectSwapData
}

func (TransitiveSwapData) isSwapData() {}

// prepareSwapData computes the missing leg amounts by chaining slippage
// helpers hop-by-hop. Exactly one of inputAmount and minimumAmountOut must
// be provided. A fresh transfer authority is generated per attempt; its
// public key goes into the approve instruction preceding each swap.
func prepareSwapData(pair PoolsPair, inputAmount, minimumAmountOut *uint64, slippageBps uint16) (SwapData, solana.PrivateKey, error) {
	if (inputAmount == nil) == (minimumAmountOut == nil) {
		return nil, nil, ErrInvalidAmount
	}
	if !pair.Hydrated() {
		return nil, nil, ErrPoolsNotHydrated
	}

	transferAuthority := solana.NewWallet().PrivateKey

	switch len(pair) {
	case 1:
		data, err := prepareDirectSwapData(&pair[0], inputAmount, minimumAmountOut, slippageBps)
		if err != nil {
			return nil, nil, err
		}
		return data, transferAuthority, nil

	case 2:
		data, err := prepareTransitiveSwapData(pair, inputAmount, minimumAmountOut, slippageBps)
		if err != nil {
			return nil, nil, err
		}
		return data, transferAuthority, nil

	default:
		return nil, nil, ErrInvalidPoolsPair
	}
}

func prepareDirectSwapData(pool *Pool, inputAmount, minimumAmountOut *uint64, slippageBps uint16) (DirectSwapData, error) {
	if inputAmount != nil {
		minOut, ok := pool.MinimumAmountOut(*inputAmount, slippageBps)
		if !ok {
			return DirectSwapData{}, ErrInvalidAmount
		}
		return DirectSwapData{AmountIn: *inputAmount, MinimumAmountOut: minOut}, nil
	}

	in, ok := pool.InputAmountWithSlippage(*minimumAmountOut, slippageBps)
	if !ok {
		return DirectSwapData{}, ErrInvalidAmount
	}
	return DirectSwapData{AmountIn: in, MinimumAmountOut: *minimumAmountOut}, nil
}

func prepareTransitiveSwapData(pair PoolsPair, inputAmount, minimumAmountOut *uint64, slippageBps uint16) (TransitiveSwapData, error) {
	if inputAmount != nil {
		// forward: source amount known, chain minimum-outs downstream
		midOut, ok := pair[0].MinimumAmountOut(*inputAmount, slippageBps)
		if !ok {
			return TransitiveSwapData{}, ErrInvalidAmount
		}
		finalOut, ok := pair[1].MinimumAmountOut(midOut, slippageBps)
		if !ok {
			return TransitiveSwapData{}, ErrInvalidAmount
		}
		return TransitiveSwapData{
			From: DirectSwapData{AmountIn: *inputAmount, MinimumAmountOut: midOut},
			To:   DirectSwapData{AmountIn: midOut, MinimumAmountOut: finalOut},
		}, nil
	}

	// backward: destination minimum known, chain required inputs upstream
	midIn, ok := pair[1].InputAmountWithSlippage(*minimumAmountOut, slippageBps)
	if !ok {
		return TransitiveSwapData{}, ErrInvalidAmount
	}
	sourceIn, ok := pair[0].InputAmountWithSlippage(midIn, slippageBps)
	if !ok {
		return TransitiveSwapData{}, ErrInvalidAmount
	}
	return TransitiveSwapData{
		From: DirectSwapData{AmountIn: sourceIn, MinimumAmountOut: midIn},
		To:   DirectSwapData{AmountIn: midIn, MinimumAmountOut: *minimumAmountOut},
	}, nil
}
