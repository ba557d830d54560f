package orcaswap

import (
	"math"
	"math/big"
)

// All trade math runs on uint64 base units with truncating integer
// division, matching what the on-chain program computes. Intermediate
// products use big.Int: reserves near 2^64 make reserveIn*reserveOut
// overflow native words.

const slippageDenominator = 10_000 // slippage expressed in basis points

// fees returns the proportional trade fee plus owner fee for an input
// amount, truncated toward zero per schedule.
func (p *Pool) fees(amount uint64) uint64 {
	total := proportionalFee(amount, p.FeeNumerator, p.FeeDenominator)
	if p.OwnerTradeFeeDenominator != 0 {
		total += proportionalFee(amount, p.OwnerTradeFeeNumerator, p.OwnerTradeFeeDenominator)
	}
	return total
}

func proportionalFee(amount, numerator, denominator uint64) uint64 {
	if denominator == 0 {
		return 0
	}
	f := new(big.Int).SetUint64(amount)
	f.Mul(f, new(big.Int).SetUint64(numerator))
	f.Div(f, new(big.Int).SetUint64(denominator))
	return f.Uint64()
}

// OutputAmount simulates trading inputAmount of the pool's input-side token:
// the fee schedule is applied to the input, then the constant-product
// invariant yields the output. Returns ok=false when reserves are not
// hydrated or the input is zero.
func (p *Pool) OutputAmount(inputAmount uint64) (uint64, bool) {
	if !p.Hydrated() || inputAmount == 0 {
		return 0, false
	}
	reserveIn := *p.TokenABalance
	reserveOut := *p.TokenBBalance
	if reserveIn == 0 || reserveOut == 0 || p.FeeDenominator == 0 {
		return 0, false
	}

	fees := p.fees(inputAmount)
	if fees >= inputAmount {
		return 0, false
	}
	netInput := inputAmount - fees

	// out = reserveOut - (reserveIn * reserveOut) / (reserveIn + netInput)
	invariant := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveIn),
		new(big.Int).SetUint64(reserveOut),
	)
	newReserveIn := new(big.Int).Add(
		new(big.Int).SetUint64(reserveIn),
		new(big.Int).SetUint64(netInput),
	)
	newReserveOut := new(big.Int).Div(invariant, newReserveIn)

	out := new(big.Int).Sub(new(big.Int).SetUint64(reserveOut), newReserveOut)
	if !out.IsUint64() {
		return 0, false
	}
	return out.Uint64(), true
}

// InputAmount is the inverse query: the minimum input needed so that
// OutputAmount(input) >= estimatedAmount. Returns ok=false when reserves
// are not hydrated or the requested output cannot be produced.
func (p *Pool) InputAmount(estimatedAmount uint64) (uint64, bool) {
	if !p.Hydrated() || estimatedAmount == 0 {
		return 0, false
	}
	reserveIn := *p.TokenABalance
	reserveOut := *p.TokenBBalance
	if reserveIn == 0 || reserveOut == 0 || p.FeeDenominator == 0 {
		return 0, false
	}
	if estimatedAmount >= reserveOut {
		return 0, false
	}

	// The forward formula truncates toward zero:
	//   out = reserveOut - floor(invariant / (reserveIn + netInput))
	// so out >= estimated iff floor(invariant / newReserveIn) <= q
	// with q = reserveOut - estimated, iff
	//   newReserveIn >= floor(invariant / (q+1)) + 1.
	invariant := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveIn),
		new(big.Int).SetUint64(reserveOut),
	)
	q := new(big.Int).SetUint64(reserveOut - estimatedAmount)
	minNewReserveIn := new(big.Int).Div(invariant, q.Add(q, big.NewInt(1)))
	minNewReserveIn.Add(minNewReserveIn, big.NewInt(1))

	netNeeded := new(big.Int).Sub(minNewReserveIn, new(big.Int).SetUint64(reserveIn))
	if netNeeded.Sign() <= 0 {
		netNeeded.SetInt64(1)
	}
	if !netNeeded.IsUint64() {
		return 0, false
	}

	return p.grossUp(netNeeded.Uint64())
}

// grossUp finds the minimal pre-fee input whose net (input minus fees)
// covers netNeeded. Starts from the analytic estimate and corrects for fee
// truncation, so the round trip InputAmount(OutputAmount(x)) never exceeds
// x.
func (p *Pool) grossUp(netNeeded uint64) (uint64, bool) {
	if !p.feeBelowOne() {
		return 0, false
	}

	// Fixed-point iteration: add back whatever the fee schedule still eats.
	// Converges geometrically since the combined fee rate is below one.
	gross := netNeeded
	for {
		net := gross - p.fees(gross)
		if net >= netNeeded {
			break
		}
		gross += netNeeded - net
	}
	for gross > 1 && (gross-1)-p.fees(gross-1) >= netNeeded {
		gross--
	}
	return gross, true
}

// feeBelowOne reports whether the combined trade + owner fee rate is below
// 100%: feeN/feeD + ownerN/ownerD < 1.
func (p *Pool) feeBelowOne() bool {
	if p.FeeDenominator == 0 || p.FeeNumerator >= p.FeeDenominator {
		return false
	}
	if p.OwnerTradeFeeDenominator == 0 {
		return true
	}
	lhs := new(big.Int).Mul(
		new(big.Int).SetUint64(p.FeeNumerator),
		new(big.Int).SetUint64(p.OwnerTradeFeeDenominator),
	)
	lhs.Add(lhs, new(big.Int).Mul(
		new(big.Int).SetUint64(p.OwnerTradeFeeNumerator),
		new(big.Int).SetUint64(p.FeeDenominator),
	))
	rhs := new(big.Int).Mul(
		new(big.Int).SetUint64(p.FeeDenominator),
		new(big.Int).SetUint64(p.OwnerTradeFeeDenominator),
	)
	return lhs.Cmp(rhs) < 0
}

// MinimumAmountOut applies slippage tolerance to the simulated output,
// floored to the token's integer base unit.
func (p *Pool) MinimumAmountOut(inputAmount uint64, slippageBps uint16) (uint64, bool) {
	out, ok := p.OutputAmount(inputAmount)
	if !ok {
		return 0, false
	}
	return applySlippage(out, slippageBps), true
}

// InputAmountWithSlippage works backward from a desired minimum-out: the
// pre-slippage estimated output is reconstructed, then inverted.
func (p *Pool) InputAmountWithSlippage(minimumAmountOut uint64, slippageBps uint16) (uint64, bool) {
	estimated, ok := removeSlippage(minimumAmountOut, slippageBps)
	if !ok {
		return 0, false
	}
	return p.InputAmount(estimated)
}

// LiquidityProviderFee returns the pool fee taken from a trade, in input
// token base units.
func (p *Pool) LiquidityProviderFee(inputAmount uint64) (uint64, bool) {
	if !p.Hydrated() || inputAmount == 0 {
		return 0, false
	}
	return p.fees(inputAmount), true
}

func applySlippage(amount uint64, slippageBps uint16) uint64 {
	if slippageBps >= slippageDenominator {
		return 0
	}
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, new(big.Int).SetUint64(slippageDenominator-uint64(slippageBps)))
	v.Div(v, new(big.Int).SetUint64(slippageDenominator))
	return v.Uint64()
}

func removeSlippage(amount uint64, slippageBps uint16) (uint64, bool) {
	if slippageBps >= slippageDenominator {
		return 0, false
	}
	// ceiling division: the reconstructed estimate must not undershoot
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, new(big.Int).SetUint64(slippageDenominator))
	v.Add(v, new(big.Int).SetUint64(slippageDenominator-uint64(slippageBps)-1))
	v.Div(v, new(big.Int).SetUint64(slippageDenominator-uint64(slippageBps)))
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// OutputAmount chains the simulation across the pair's one or two hops.
func (pp PoolsPair) OutputAmount(inputAmount uint64) (uint64, bool) {
	switch len(pp) {
	case 1:
		return pp[0].OutputAmount(inputAmount)
	case 2:
		mid, ok := pp[0].OutputAmount(inputAmount)
		if !ok {
			return 0, false
		}
		return pp[1].OutputAmount(mid)
	default:
		return 0, false
	}
}

// InputAmount chains the inverse query backward across the pair's hops.
func (pp PoolsPair) InputAmount(estimatedAmount uint64) (uint64, bool) {
	switch len(pp) {
	case 1:
		return pp[0].InputAmount(estimatedAmount)
	case 2:
		mid, ok := pp[1].InputAmount(estimatedAmount)
		if !ok {
			return 0, false
		}
		return pp[0].InputAmount(mid)
	default:
		return 0, false
	}
}

// IntermediaryTokenName returns the token traded between the two hops of a
// transitive pair.
func (pp PoolsPair) IntermediaryTokenName() (string, bool) {
	if len(pp) != 2 {
		return "", false
	}
	return pp[0].TokenBName, true
}

// Hydrated reports whether every pool in the pair has loaded reserves.
func (pp PoolsPair) Hydrated() bool {
	for i := range pp {
		if !pp[i].Hydrated() {
			return false
		}
	}
	return len(pp) > 0
}

// BaseUnits converts a human-readable amount to token base units.
func BaseUnits(amount float64, decimals uint8) uint64 {
	if amount <= 0 {
		return 0
	}
	return uint64(math.Round(amount * math.Pow10(int(decimals))))
}
