package farm

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/types"
)

func TestRefreshFoldsEmissionIntoAccumulator(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)

	f.clock.Advance(100)
	require.NoError(t, f.ctrl.RefreshPool(id))

	// 100s * 10/s over 1000 staked, at 1e12 fixed-point scale.
	expected := sdkmath.NewInt(1_000).Mul(f.ctrl.Params().PrecisionFactor).QuoRaw(1_000)
	pool := f.committedPool(id)
	assert.Equal(t, expected, pool.AccRewardPerShare)
	assert.Equal(t, f.clock.Now(), pool.LastDistribution)
}

func TestRefreshWithoutElapsedTimeIsUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()
	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)

	f.clock.Advance(50)
	require.NoError(t, f.ctrl.RefreshPool(id))
	first := f.committedPool(id)

	// Same second again: nothing may move.
	require.NoError(t, f.ctrl.RefreshPool(id))
	second := f.committedPool(id)
	assert.Equal(t, first.AccRewardPerShare, second.AccRewardPerShare)
	assert.Equal(t, first.LastDistribution, second.LastDistribution)
}

func TestZeroStakedRefreshForfeitsInterval(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	// 100 empty seconds at rate 10: nothing to credit, time still advances.
	f.clock.Advance(100)
	require.NoError(t, f.ctrl.RefreshPool(id))

	pool := f.committedPool(id)
	assert.True(t, pool.AccRewardPerShare.IsZero())
	assert.Equal(t, f.clock.Now(), pool.LastDistribution)

	// A depositor arriving afterwards earns only from their own interval.
	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)
	f.clock.Advance(10)

	assert.Equal(t, sdkmath.NewInt(40), f.pending("alice", id))
}

func TestAccumulatorMonotonic(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	f.mint("alice", "ulp", 5_000)
	f.mint("bob", "ulp", 5_000)

	last := sdkmath.ZeroInt()
	step := func(name string) {
		t.Helper()
		acc := f.committedPool(id).AccRewardPerShare
		assert.True(t, acc.GTE(last), "accumulator regressed after %s: %s < %s", name, acc, last)
		last = acc
	}

	f.deposit("alice", id, 1_000)
	step("alice deposit")

	f.clock.Advance(30)
	f.deposit("bob", id, 4_000)
	step("bob deposit")

	f.clock.Advance(45)
	_, err := f.ctrl.Withdraw("alice", id, sdkmath.NewInt(500))
	require.NoError(t, err)
	step("alice withdraw")

	f.clock.Advance(15)
	_, err = f.ctrl.Claim("bob", id)
	require.NoError(t, err)
	step("bob claim")

	require.NoError(t, f.ctrl.RefreshPool(id))
	step("refresh")
}

func TestRefreshAllCommitsEveryPool(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 100)
	second := f.registerPool("uatom", 300)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	f.mint("alice", "ulp", 1_000)
	f.mint("alice", "uatom", 1_000)
	f.deposit("alice", first, 1_000)
	f.deposit("alice", second, 1_000)

	f.clock.Advance(200)
	f.ctrl.RefreshAll()

	for _, id := range []types.PoolID{first, second} {
		pool := f.committedPool(id)
		assert.Equal(t, f.clock.Now(), pool.LastDistribution)
		assert.True(t, pool.AccRewardPerShare.IsPositive())
	}
}
