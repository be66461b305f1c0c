package farm

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/types"
)

func TestRegisterPool(t *testing.T) {
	f := newFixture(t)

	first, err := f.ctrl.RegisterPool("ulp", sdkmath.NewInt(100), false)
	require.NoError(t, err)
	assert.Equal(t, types.PoolID(1), first)

	second, err := f.ctrl.RegisterPool("uatom", sdkmath.NewInt(50), false)
	require.NoError(t, err)
	assert.Equal(t, types.PoolID(2), second)

	snap := f.ctrl.Snapshot()
	assert.Len(t, snap.Pools, 2)
	assert.Equal(t, sdkmath.NewInt(150), snap.TotalWeight)
	assert.Equal(t, "ulp", snap.Pools[0].StakedDenom)
	assert.True(t, snap.Pools[0].EmissionRate.IsZero())

	kinds := []types.EventKind{}
	for _, event := range f.events.Events() {
		kinds = append(kinds, event.Kind)
	}
	assert.Contains(t, kinds, types.EventPoolRegistered)
}

func TestRegisterPoolValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.RegisterPool("ulp", sdkmath.NewInt(100), false)
	require.NoError(t, err)

	t.Run("empty denom", func(t *testing.T) {
		_, err := f.ctrl.RegisterPool("", sdkmath.NewInt(1), false)
		assert.ErrorIs(t, err, ErrInvalidDenom)
	})

	t.Run("nil reserved weight", func(t *testing.T) {
		_, err := f.ctrl.RegisterPool("uatom", sdkmath.Int{}, false)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("negative reserved weight", func(t *testing.T) {
		_, err := f.ctrl.RegisterPool("uatom", sdkmath.NewInt(-1), false)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("duplicate staked asset", func(t *testing.T) {
		_, err := f.ctrl.RegisterPool("ulp", sdkmath.NewInt(10), false)
		assert.ErrorIs(t, err, ErrPoolExists)

		snap := f.ctrl.Snapshot()
		assert.Len(t, snap.Pools, 1)
		assert.Equal(t, sdkmath.NewInt(100), snap.TotalWeight)
	})
}

func TestReleaseReservedWeight(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.registerPool("uatom", 50)

	require.NoError(t, f.ctrl.ReleaseReservedWeight(id, false))

	pool := f.committedPool(id)
	assert.True(t, pool.ReservedWeight.IsZero())
	assert.Equal(t, sdkmath.NewInt(50), f.ctrl.Snapshot().TotalWeight)

	t.Run("second release rejected", func(t *testing.T) {
		err := f.ctrl.ReleaseReservedWeight(id, false)
		assert.ErrorIs(t, err, ErrReservedWeightReleased)
		assert.Equal(t, sdkmath.NewInt(50), f.ctrl.Snapshot().TotalWeight)
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		err := f.ctrl.ReleaseReservedWeight(types.PoolID(99), false)
		assert.ErrorIs(t, err, ErrPoolNotFound)
	})
}

func TestStartEmissions(t *testing.T) {
	f := newFixture(t)
	window := f.ctrl.Params().EmissionWindowSeconds
	denom := f.ctrl.Params().RewardDenom

	t.Run("funder without funds rejected", func(t *testing.T) {
		err := f.ctrl.StartEmissions(treasury, sdkmath.NewInt(1_000))
		assert.ErrorIs(t, err, ErrTransferRejected)
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
		assert.False(t, f.ctrl.Snapshot().EmissionsStarted)
	})

	t.Run("supply moves to escrow and fixes the rate", func(t *testing.T) {
		supply := 10*window + 7
		f.mint(treasury, denom, supply)
		require.NoError(t, f.ctrl.StartEmissions(treasury, sdkmath.NewInt(supply)))

		snap := f.ctrl.Snapshot()
		assert.True(t, snap.EmissionsStarted)
		// Floored: the 7 leftover units stay in escrow unscheduled.
		assert.Equal(t, sdkmath.NewInt(10), snap.TotalEmissionRate)
		assert.Equal(t, sdkmath.NewInt(supply), snap.RewardEscrow)
		assert.True(t, f.rewardBalance(treasury).IsZero())
	})

	t.Run("second start rejected", func(t *testing.T) {
		f.mint(treasury, denom, 1_000)
		err := f.ctrl.StartEmissions(treasury, sdkmath.NewInt(1_000))
		assert.ErrorIs(t, err, ErrEmissionsStarted)
	})

	t.Run("non-positive supply rejected", func(t *testing.T) {
		fresh := newFixture(t)
		err := fresh.ctrl.StartEmissions(treasury, sdkmath.ZeroInt())
		assert.ErrorIs(t, err, ErrInvalidAmount)
		err = fresh.ctrl.StartEmissions(treasury, sdkmath.Int{})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestRegisterPoolRefreshFirst(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()
	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", first, 1_000)

	f.clock.Advance(100)
	_, err := f.ctrl.RegisterPool("uatom", sdkmath.NewInt(100), true)
	require.NoError(t, err)

	// The existing pool was refreshed and committed before the weight grew.
	pool := f.committedPool(first)
	assert.Equal(t, f.clock.Now(), pool.LastDistribution)
	assert.True(t, pool.AccRewardPerShare.IsPositive())
}

func TestReleaseReservedWeightRefreshFirst(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 100)
	f.registerPool("uatom", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()
	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", first, 1_000)

	f.clock.Advance(60)
	require.NoError(t, f.ctrl.ReleaseReservedWeight(first, true))

	pool := f.committedPool(first)
	assert.Equal(t, f.clock.Now(), pool.LastDistribution)
	assert.True(t, pool.AccRewardPerShare.IsPositive())
	assert.True(t, pool.ReservedWeight.IsZero())
}
