/*

Position state: one record per (pool, participant) tracking raw stake, the
boost-derived stake used for reward math, and the reward debt baseline.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type Position struct {
	PoolID       PoolID      `json:"pool_id"`
	Account      string      `json:"account"`
	StakedAmount sdkmath.Int `json:"staked_amount"`
	DerivedStake sdkmath.Int `json:"derived_stake"` // boost-adjusted stake, never exceeds StakedAmount
	RewardDebt   sdkmath.Int `json:"reward_debt"`   // DerivedStake * AccRewardPerShare / PrecisionFactor at last settlement
}

// PositionView is a Position together with its live pending reward, produced
// by the controller after an internal refresh.
type PositionView struct {
	Position
	PendingReward sdkmath.Int `json:"pending_reward"`
}
