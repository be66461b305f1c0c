/*

Vote state: per-participant record of live weight allocations across pools.
A vote is replaced wholesale by the next vote from the same participant.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type VoterState struct {
	Account     string                 `json:"account"`
	Power       sdkmath.Int            `json:"power"` // governance power captured at the last vote cast
	Pools       []PoolID               `json:"pools"` // ordered list of pools holding live allocations
	Allocations map[PoolID]sdkmath.Int `json:"allocations"`
}

// VoteAllocation is a flattened (pool, weight) pair for views and events.
type VoteAllocation struct {
	PoolID PoolID      `json:"pool_id"`
	Weight sdkmath.Int `json:"weight"`
}

// VoterView is the read-model of a participant's live vote.
type VoterView struct {
	Account     string           `json:"account"`
	Power       sdkmath.Int      `json:"power"`
	Allocations []VoteAllocation `json:"allocations"`
}
