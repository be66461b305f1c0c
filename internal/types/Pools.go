/*

Pool state for the emission engine: each pool is a staking market for one asset
with its own reward accumulator, emission rate and voting weight.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

type Pool struct {
	ID                PoolID      `json:"id"`
	StakedDenom       string      `json:"staked_denom"`         // asset accepted by this pool, unique across pools
	EmissionRate      sdkmath.Int `json:"emission_rate"`        // reward units per second, assigned by the last rebalance
	AccRewardPerShare sdkmath.Int `json:"acc_reward_per_share"` // fixed-point, scaled by FarmParameters.PrecisionFactor
	LastDistribution  int64       `json:"last_distribution"`    // unix seconds of the last accumulator refresh
	ReservedWeight    sdkmath.Int `json:"reserved_weight"`      // bootstrap weight, not attributable to any voter
	VotedWeight       sdkmath.Int `json:"voted_weight"`         // sum of live vote allocations for this pool
}

// Weight is the pool's total voting weight as used by the rebalance step.
func (p Pool) Weight() sdkmath.Int {
	return p.ReservedWeight.Add(p.VotedWeight)
}
