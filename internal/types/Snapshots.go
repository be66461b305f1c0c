/*

Snapshot types: the read-model of the whole engine at a point in time, used by
the web views and persisted per epoch by the audit store.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolSnapshot struct {
	Pool
	TotalStaked   sdkmath.Int `json:"total_staked"` // live escrow balance at snapshot time
	PositionCount int         `json:"position_count"`
}

type EngineSnapshot struct {
	Timestamp         time.Time      `json:"timestamp"`
	EmissionsStarted  bool           `json:"emissions_started"`
	TotalEmissionRate sdkmath.Int    `json:"total_emission_rate"` // reward units per second, system wide
	TotalWeight       sdkmath.Int    `json:"total_weight"`
	RewardEscrow      sdkmath.Int    `json:"reward_escrow"` // undistributed reward balance
	Pools             []PoolSnapshot `json:"pools"`
	PositionCount     int            `json:"position_count"`
	VoterCount        int            `json:"voter_count"`
}
