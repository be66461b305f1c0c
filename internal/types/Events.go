/*

Events emitted by the engine after each committed state transition. They are
observational only: sinks may log them, persist them or count them, but the
engine never reads them back.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type EventKind string

const (
	EventDeposit                EventKind = "DEPOSIT"
	EventWithdraw               EventKind = "WITHDRAW"
	EventRewardPaid             EventKind = "REWARD_PAID"
	EventVoteCast               EventKind = "VOTE_CAST"
	EventVotesReset             EventKind = "VOTES_RESET"
	EventRebalance              EventKind = "REBALANCE"
	EventPoolRegistered         EventKind = "POOL_REGISTERED"
	EventReservedWeightReleased EventKind = "RESERVED_WEIGHT_RELEASED"
	EventEmissionsStarted       EventKind = "EMISSIONS_STARTED"
)

type Event struct {
	EventID   string      `json:"event_id"` // uuid, for log and audit correlation
	Kind      EventKind   `json:"kind"`
	PoolID    PoolID      `json:"pool_id,omitempty"` // zero for system-wide events
	Account   string      `json:"account,omitempty"`
	Denom     string      `json:"denom,omitempty"`
	Amount    sdkmath.Int `json:"amount"`
	Timestamp time.Time   `json:"timestamp"`
}
