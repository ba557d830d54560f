package orcaswap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(reserveA, reserveB, feeNum, feeDen uint64) Pool {
	return Pool{
		Name:           "A/B",
		TokenAName:     "A",
		TokenBName:     "B",
		TokenABalance:  &reserveA,
		TokenBBalance:  &reserveB,
		FeeNumerator:   feeNum,
		FeeDenominator: feeDen,
	}
}

func TestPoolOutputAmount(t *testing.T) {
	// No fee: out = 1000 - floor(1000*1000 / 1100) = 1000 - 909 = 91
	pool := testPool(1000, 1000, 0, 1)
	out, ok := pool.OutputAmount(100)
	assert.True(t, ok)
	assert.Equal(t, uint64(91), out)

	// 10% fee: net 90, out = 1000 - floor(1000000/1090) = 1000 - 917 = 83
	pool = testPool(1000, 1000, 1, 10)
	out, ok = pool.OutputAmount(100)
	assert.True(t, ok)
	assert.Equal(t, uint64(83), out)
}

func TestPoolOutputAmountInvalidState(t *testing.T) {
	pool := testPool(1000, 1000, 3, 1000)

	_, ok := pool.OutputAmount(0)
	assert.False(t, ok, "zero input must be rejected")

	unhydrated := pool
	unhydrated.TokenABalance = nil
	_, ok = unhydrated.OutputAmount(100)
	assert.False(t, ok, "un-hydrated pool must be rejected")

	// fee eats the whole input
	pool = testPool(1000, 1000, 1, 1)
	_, ok = pool.OutputAmount(100)
	assert.False(t, ok)
}

func TestPoolRoundTrip(t *testing.T) {
	// getInputAmount(getOutputAmount(x)) must never exceed x, and the
	// returned input must still produce at least the same output.
	pools := []Pool{
		testPool(1_000_000_000, 2_000_000_000, 30, 10_000),
		testPool(1_000_000, 1_000_000, 0, 1),
		testPool(5_000_000, 3_000_000, 25, 10_000),
	}
	withOwnerFee := testPool(10_000_000, 20_000_000, 30, 10_000)
	withOwnerFee.OwnerTradeFeeNumerator = 5
	withOwnerFee.OwnerTradeFeeDenominator = 10_000
	pools = append(pools, withOwnerFee)

	inputs := []uint64{1, 2, 100, 999, 10_000, 123_456, 2_000_000}

	for _, pool := range pools {
		for _, x := range inputs {
			out, ok := pool.OutputAmount(x)
			if !ok || out == 0 {
				continue
			}
			in, ok := pool.InputAmount(out)
			require.True(t, ok, "inverse must succeed for producible output %d", out)
			assert.LessOrEqual(t, in, x, "round trip increased required input")

			check, ok := pool.OutputAmount(in)
			require.True(t, ok)
			assert.GreaterOrEqual(t, check, out, "returned input does not cover the output")
		}
	}
}

func TestPoolInputAmountMinimal(t *testing.T) {
	pool := testPool(1_000_000_000, 2_000_000_000, 30, 10_000)

	in, ok := pool.InputAmount(1_000_000)
	require.True(t, ok)

	// one unit less must not be enough
	if in > 1 {
		out, ok := pool.OutputAmount(in - 1)
		if ok {
			assert.Less(t, out, uint64(1_000_000), "input is not minimal")
		}
	}
}

func TestPoolInputAmountUnproducible(t *testing.T) {
	pool := testPool(1000, 1000, 0, 1)

	_, ok := pool.InputAmount(1000)
	assert.False(t, ok, "cannot drain the entire output reserve")

	_, ok = pool.InputAmount(0)
	assert.False(t, ok)
}

func TestMinimumAmountOutSlippageMonotonic(t *testing.T) {
	pool := testPool(1_000_000_000, 2_000_000_000, 30, 10_000)

	prev, ok := pool.MinimumAmountOut(10_000_000, 0)
	require.True(t, ok)
	for _, bps := range []uint16{10, 50, 100, 500, 1000, 5000} {
		cur, ok := pool.MinimumAmountOut(10_000_000, bps)
		require.True(t, ok)
		assert.LessOrEqual(t, cur, prev, "minimum out increased with slippage %d bps", bps)
		prev = cur
	}
}

func TestInputAmountWithSlippage(t *testing.T) {
	pool := testPool(1_000_000_000, 2_000_000_000, 30, 10_000)

	const minOut = 1_000_000
	const slippage = 100 // 1%

	in, ok := pool.InputAmountWithSlippage(minOut, slippage)
	require.True(t, ok)

	// trading that input with the same slippage tolerance must still
	// guarantee at least minOut
	got, ok := pool.MinimumAmountOut(in, slippage)
	require.True(t, ok)
	assert.GreaterOrEqual(t, got, uint64(minOut))
}

func TestLiquidityProviderFee(t *testing.T) {
	pool := testPool(1_000_000_000, 2_000_000_000, 30, 10_000)

	fee, ok := pool.LiquidityProviderFee(10_000_000)
	require.True(t, ok)
	assert.Equal(t, uint64(30_000), fee) // 0.3% of 10_000_000
}

func TestPoolsPairChaining(t *testing.T) {
	p1 := testPool(1_000_000_000, 2_000_000_000, 30, 10_000)
	p2 := testPool(3_000_000_000, 1_500_000_000, 30, 10_000)
	p2.TokenAName, p2.TokenBName = "B", "C"
	pair := PoolsPair{p1, p2}

	mid, ok := p1.OutputAmount(10_000_000)
	require.True(t, ok)
	want, ok := p2.OutputAmount(mid)
	require.True(t, ok)

	got, ok := pair.OutputAmount(10_000_000)
	require.True(t, ok)
	assert.Equal(t, want, got)

	name, ok := pair.IntermediaryTokenName()
	require.True(t, ok)
	assert.Equal(t, "B", name)
}

func TestPoolsPairInvalidLength(t *testing.T) {
	_, ok := PoolsPair{}.OutputAmount(100)
	assert.False(t, ok)

	three := PoolsPair{testPool(1000, 1000, 0, 1), testPool(1000, 1000, 0, 1), testPool(1000, 1000, 0, 1)}
	_, ok = three.OutputAmount(100)
	assert.False(t, ok)
	_, ok = three.InputAmount(100)
	assert.False(t, ok)
}

func TestReversed(t *testing.T) {
	pool := testPool(1000, 2000, 30, 10_000)
	rev := pool.Reversed()

	assert.Equal(t, "B", rev.TokenAName)
	assert.Equal(t, "A", rev.TokenBName)
	assert.Equal(t, uint64(2000), *rev.TokenABalance)
	assert.Equal(t, uint64(1000), *rev.TokenBBalance)

	// original untouched
	assert.Equal(t, "A", pool.TokenAName)
	assert.Equal(t, uint64(1000), *pool.TokenABalance)
}

func TestBaseUnits(t *testing.T) {
	assert.Equal(t, uint64(10_000_000), BaseUnits(10, 6))
	assert.Equal(t, uint64(1_500_000_000), BaseUnits(1.5, 9))
	assert.Equal(t, uint64(0), BaseUnits(0, 6))
	assert.Equal(t, uint64(0), BaseUnits(-1, 6))
}
