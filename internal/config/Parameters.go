/*

This file contains the default engine parameters for emissary.

Each value mirrors the reference deployment of the emission controller; change
them only with a migration plan for live accumulator state.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/types"
)

// DefaultFarmParameters provides the baseline engine parameters. LoadConfig
// may override RewardDenom and EmissionWindowSeconds from the environment;
// everything else is fixed at build time.
var DefaultFarmParameters = types.FarmParameters{
	PrecisionFactor: sdkmath.NewInt(1_000_000_000_000), // 1e12 fixed-point scale.
	// Rationale: the accumulator stores reward-per-share as an integer. 1e12
	// keeps twelve decimal digits of precision through the floor division and
	// still leaves ample headroom inside a 256-bit Int for realistic supplies.

	BoostBaseBps: 4_000, // 40% of raw stake always counts.
	// Rationale: every staker earns on at least 40% of their stake regardless
	// of governance power, so passive stakers are never starved.

	BoostExtraBps: 6_000, // up to 60% more from governance power.
	// Rationale: the remaining 60% is earned by holding governance power in
	// proportion to the pool, capped so derived stake never exceeds raw stake.
	// BoostBaseBps + BoostExtraBps must equal the full 10000 bps.

	EmissionWindowSeconds: 31_536_000, // one year (365 days).
	// Rationale: start_emissions divides the pulled-in supply by this window
	// to fix the global per-second rate for the whole distribution.

	RewardDenom: "uemr",
	// Rationale: the reward asset streamed to stakers. Overridable via
	// REWARD_DENOM for test networks.
}
