/*

Boost calculation. A position earns on its derived stake, not its raw stake:
derived blends a fixed share of raw stake with a governance-power-weighted
slice of the whole pool, capped at raw stake. The cap is load-bearing: without
it a participant with outsized governance power would earn on stake they do
not hold, siphoning rewards from the other stakers in the pool.

*/

package farm

import (
	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/types"
)

// deriveStake computes the boosted stake for a holding of stakedAmount inside
// a pool whose effective total staked balance is poolTotalStaked.
//
// Governance power and its total supply are queried live on every call, never
// cached. poolTotalStaked is supplied by the caller because mid-settlement
// the ledger has not applied the operation's own stake movement yet; callers
// pass the post-operation total.
//
//	base    = staked * BoostBaseBps / 10000
//	boosted = (poolTotal * power / totalPower) * BoostExtraBps / 10000
//	derived = min(base + boosted, staked)
//
// A zero governance-power supply means no boost exists to hand out: derived
// is base only, never an error.
func (c *Controller) deriveStake(account string, stakedAmount, poolTotalStaked sdkmath.Int) sdkmath.Int {
	if stakedAmount.IsZero() {
		return sdkmath.ZeroInt()
	}

	base := stakedAmount.MulRaw(c.params.BoostBaseBps).QuoRaw(types.BpsDenominator)

	totalPower := c.power.TotalPower()
	if totalPower.IsZero() {
		return sdkmath.MinInt(base, stakedAmount)
	}

	poolShare := poolTotalStaked.Mul(c.power.PowerOf(account)).Quo(totalPower)
	boosted := poolShare.MulRaw(c.params.BoostExtraBps).QuoRaw(types.BpsDenominator)

	return sdkmath.MinInt(base.Add(boosted), stakedAmount)
}
