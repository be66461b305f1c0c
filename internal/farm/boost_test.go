package farm

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStake(t *testing.T) {
	tests := []struct {
		name       string
		staked     int64
		poolTotal  int64
		power      int64
		totalPower int64
		expected   int64
	}{
		{
			name:     "no governance power supply pays base only",
			staked:   1_000,
			expected: 400,
		},
		{
			name:       "zero stake derives zero",
			staked:     0,
			power:      1_000,
			totalPower: 1_000,
			expected:   0,
		},
		{
			name:       "partial power adds boosted slice",
			staked:     1_000,
			poolTotal:  2_000,
			power:      100_000,
			totalPower: 1_000_000,
			// base 400 + 60% of (2000 * 10%) = 400 + 120
			expected: 520,
		},
		{
			name:       "full power is capped at raw stake",
			staked:     1_000,
			poolTotal:  2_000,
			power:      1_000_000,
			totalPower: 1_000_000,
			// base 400 + 60% of 2000 = 1600, capped
			expected: 1_000,
		},
		{
			name:       "power without stake in pool earns nothing",
			staked:     0,
			poolTotal:  5_000,
			power:      1_000_000,
			totalPower: 1_000_000,
			expected:   0,
		},
		{
			name:     "dust stake floors to zero base",
			staked:   2,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.power > 0 {
				require.NoError(t, f.oracle.SetPower("staker", sdkmath.NewInt(tt.power)))
			}
			if rest := tt.totalPower - tt.power; rest > 0 {
				require.NoError(t, f.oracle.SetPower("others", sdkmath.NewInt(rest)))
			}

			derived := f.ctrl.deriveStake("staker", sdkmath.NewInt(tt.staked), sdkmath.NewInt(tt.poolTotal))
			assert.Equal(t, sdkmath.NewInt(tt.expected), derived)
		})
	}
}

func TestGovernancePowerBoostsRewards(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	require.NoError(t, f.oracle.SetPower("xavier", sdkmath.NewInt(100_000)))
	require.NoError(t, f.oracle.SetPower("whale", sdkmath.NewInt(900_000)))

	f.mint("xavier", "ulp", 1_000)
	f.mint("yara", "ulp", 1_000)
	f.deposit("xavier", id, 1_000)
	f.deposit("yara", id, 1_000)

	posX, ok := f.committedPosition("xavier", id)
	require.True(t, ok)
	posY, ok := f.committedPosition("yara", id)
	require.True(t, ok)

	// Equal raw stakes; only xavier holds governance power.
	assert.Equal(t, posX.StakedAmount, posY.StakedAmount)
	assert.True(t, posX.DerivedStake.GT(posY.DerivedStake))
	assert.True(t, posX.DerivedStake.LTE(posX.StakedAmount))
	assert.True(t, posY.DerivedStake.LTE(posY.StakedAmount))

	f.clock.Advance(100)

	paidX, err := f.ctrl.Claim("xavier", id)
	require.NoError(t, err)
	paidY, err := f.ctrl.Claim("yara", id)
	require.NoError(t, err)

	assert.True(t, paidX.GT(paidY), "boosted staker must out-earn unboosted: %s vs %s", paidX, paidY)
	assert.Equal(t, paidX, f.rewardBalance("xavier"))
	assert.Equal(t, paidY, f.rewardBalance("yara"))

	// Claiming recomputed xavier's boost against the full pool balance:
	// base 400 + 60% of (2000 * 10%) = 520.
	posX, _ = f.committedPosition("xavier", id)
	assert.Equal(t, sdkmath.NewInt(520), posX.DerivedStake)
}

func TestBoostReadsPowerFreshEachSettlement(t *testing.T) {
	f := newFixture(t)
	id := f.registerPool("ulp", 100)
	f.startEmissions(10)
	f.ctrl.Rebalance()

	f.mint("alice", "ulp", 1_000)
	f.deposit("alice", id, 1_000)

	pos, _ := f.committedPosition("alice", id)
	assert.Equal(t, sdkmath.NewInt(400), pos.DerivedStake)

	// Power appears after the deposit; the next settlement must see it.
	require.NoError(t, f.oracle.SetPower("alice", sdkmath.NewInt(500)))
	require.NoError(t, f.oracle.SetPower("others", sdkmath.NewInt(500)))

	f.clock.Advance(10)
	_, err := f.ctrl.Claim("alice", id)
	require.NoError(t, err)

	// base 400 + 60% of (1000 * 50%) = 700.
	pos, _ = f.committedPosition("alice", id)
	assert.Equal(t, sdkmath.NewInt(700), pos.DerivedStake)
}
