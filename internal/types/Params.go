/*

FarmParameters are the tunable constants of the emission engine. Defaults live
in internal/config/Parameters.go; validation lives next to the engine that
consumes them (internal/farm).

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type FarmParameters struct {
	// PrecisionFactor scales the reward-per-share accumulator so integer
	// division keeps precision. 1e12 in the reference deployment.
	PrecisionFactor sdkmath.Int `json:"precision_factor"`

	// BoostBaseBps is the basis-point share of raw stake always counted
	// toward derived stake (4000 = 40%).
	BoostBaseBps int64 `json:"boost_base_bps"`

	// BoostExtraBps is the basis-point share of the governance-power-weighted
	// pool slice counted toward derived stake (6000 = 60%). BoostBaseBps +
	// BoostExtraBps must equal 10000.
	BoostExtraBps int64 `json:"boost_extra_bps"`

	// EmissionWindowSeconds is the distribution window fixed when emissions
	// start; the global rate is total_supply / EmissionWindowSeconds.
	EmissionWindowSeconds int64 `json:"emission_window_seconds"`

	// RewardDenom is the asset streamed to stakers.
	RewardDenom string `json:"reward_denom"`
}

const BpsDenominator int64 = 10_000
