package farm

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/types"
)

func TestSnapshotReportsWholeEngine(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 100)
	second := f.registerPool("uatom", 50)
	f.startEmissions(10)

	f.mint("alice", "ulp", 1_000)
	f.mint("bob", "ulp", 500)
	f.mint("bob", "uatom", 2_000)
	f.deposit("alice", first, 1_000)
	f.deposit("bob", first, 500)
	f.deposit("bob", second, 2_000)

	require.NoError(t, f.oracle.SetPower("carol", sdkmath.NewInt(1_000)))
	require.NoError(t, f.ctrl.Vote("carol", []types.PoolID{first}, []sdkmath.Int{sdkmath.NewInt(1)}))

	snap := f.ctrl.Snapshot()

	assert.Equal(t, time.Unix(testEpoch, 0).UTC(), snap.Timestamp)
	assert.True(t, snap.EmissionsStarted)
	assert.Equal(t, sdkmath.NewInt(10), snap.TotalEmissionRate)
	// 100 + 50 reserved, plus carol's 1000 voted.
	assert.Equal(t, sdkmath.NewInt(1_150), snap.TotalWeight)
	supply := sdkmath.NewInt(10 * f.ctrl.Params().EmissionWindowSeconds)
	assert.Equal(t, supply, snap.RewardEscrow)
	assert.Equal(t, 3, snap.PositionCount)
	assert.Equal(t, 1, snap.VoterCount)

	require.Len(t, snap.Pools, 2)
	assert.Equal(t, first, snap.Pools[0].ID)
	assert.Equal(t, sdkmath.NewInt(1_500), snap.Pools[0].TotalStaked)
	assert.Equal(t, 2, snap.Pools[0].PositionCount)
	assert.Equal(t, second, snap.Pools[1].ID)
	assert.Equal(t, sdkmath.NewInt(2_000), snap.Pools[1].TotalStaked)
	assert.Equal(t, 1, snap.Pools[1].PositionCount)
}

func TestViewsRefreshWithoutCommitting(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	require.True(t, f.ctrl.Rebalance())

	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)
	f.clock.Advance(100)

	// The view reports the refreshed accumulator.
	snap := f.ctrl.Snapshot()
	expectedAcc := f.ctrl.Params().PrecisionFactor // 100s * 10/s * scale / 1000 staked
	assert.Equal(t, expectedAcc, snap.Pools[0].AccRewardPerShare)
	assert.Equal(t, testEpoch+100, snap.Pools[0].LastDistribution)

	view, err := f.ctrl.PoolView(id)
	require.NoError(t, err)
	assert.Equal(t, expectedAcc, view.AccRewardPerShare)

	// The committed pool is untouched: a view is not a state transition.
	committed := f.committedPool(id)
	assert.True(t, committed.AccRewardPerShare.IsZero())
	assert.Equal(t, testEpoch, committed.LastDistribution)
}

func TestPoolViewUnknownPool(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.PoolView(7)
	assert.True(t, errors.Is(err, ErrPoolNotFound))
}

func TestPositionViewReportsLivePending(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	require.True(t, f.ctrl.Rebalance())

	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)
	f.clock.Advance(100)

	view, err := f.ctrl.PositionView("alice", id)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), view.StakedAmount)
	// Sole staker with no governance power earns on the 40% base slice of
	// the 1000 units emitted.
	assert.Equal(t, sdkmath.NewInt(400), view.PendingReward)

	_, err = f.ctrl.PositionView("mallory", id)
	assert.True(t, errors.Is(err, ErrNoPosition))

	_, err = f.ctrl.PositionView("alice", 9)
	assert.True(t, errors.Is(err, ErrPoolNotFound))
}

func TestPositionsOfReportsPoolOrder(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 100)
	f.registerPool("uatom", 100)
	third := f.registerPool("uosmo", 100)

	f.mint("alice", "ulp", 500)
	f.mint("alice", "uosmo", 700)
	f.deposit("alice", third, 700)
	f.deposit("alice", first, 500)

	views := f.ctrl.PositionsOf("alice")
	require.Len(t, views, 2)
	assert.Equal(t, first, views[0].PoolID)
	assert.Equal(t, sdkmath.NewInt(500), views[0].StakedAmount)
	assert.Equal(t, third, views[1].PoolID)
	assert.Equal(t, sdkmath.NewInt(700), views[1].StakedAmount)

	assert.Empty(t, f.ctrl.PositionsOf("bob"))
}

func TestVoterViewWithAndWithoutVote(t *testing.T) {
	f := newFixture(t)
	first := f.registerPool("ulp", 0)
	second := f.registerPool("uatom", 0)

	view := f.ctrl.VoterView("alice")
	assert.Equal(t, "alice", view.Account)
	assert.True(t, view.Power.IsZero())
	assert.Empty(t, view.Allocations)

	require.NoError(t, f.oracle.SetPower("alice", sdkmath.NewInt(2_000)))
	require.NoError(t, f.ctrl.Vote("alice",
		[]types.PoolID{second, first},
		[]sdkmath.Int{sdkmath.NewInt(30), sdkmath.NewInt(70)}))

	view = f.ctrl.VoterView("alice")
	assert.Equal(t, sdkmath.NewInt(2_000), view.Power)
	require.Len(t, view.Allocations, 2)
	// Allocations come back in cast order and sum to the captured power.
	assert.Equal(t, second, view.Allocations[0].PoolID)
	assert.Equal(t, sdkmath.NewInt(600), view.Allocations[0].Weight)
	assert.Equal(t, first, view.Allocations[1].PoolID)
	assert.Equal(t, sdkmath.NewInt(1_400), view.Allocations[1].Weight)
}
