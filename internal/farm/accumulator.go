/*

Accumulator maintenance. Every reward a position can ever claim flows through
refreshPool: it folds the emission since the last refresh into the pool's
fixed-point reward-per-share accumulator. Each operation must refresh a pool's
working copy before reading any pool or position field of it; positions are
settled against the refreshed accumulator only.

*/

package farm

import (
	"github.com/solstice-fi/emissary/internal/types"
)

// refreshPool brings a pool working copy current. The accumulator gains
// elapsed * rate * PrecisionFactor / total_staked, where total_staked is the
// pool escrow's live balance. last_distribution always advances, including
// when nothing is staked: the emission of an empty interval is forfeited
// rather than granted retroactively to a later depositor.
//
// A pool already refreshed at this timestamp is left untouched, so the
// accumulator never moves twice for the same elapsed second.
func (c *Controller) refreshPool(pool *types.Pool) {
	now := c.now()
	if now <= pool.LastDistribution {
		return
	}
	elapsed := now - pool.LastDistribution
	pool.LastDistribution = now

	if pool.EmissionRate.IsZero() {
		return
	}
	totalStaked := c.ledger.Balance(pool.StakedDenom, types.PoolEscrowAccount(pool.ID))
	if totalStaked.IsZero() {
		farmLogger.Debug().
			Uint64("pool_id", uint64(pool.ID)).
			Int64("elapsed_seconds", elapsed).
			Str("forfeited", pool.EmissionRate.MulRaw(elapsed).String()).
			Msg("Pool refreshed with zero staked balance; interval emission forfeited")
		return
	}

	reward := pool.EmissionRate.MulRaw(elapsed)
	pool.AccRewardPerShare = pool.AccRewardPerShare.Add(
		reward.Mul(c.params.PrecisionFactor).Quo(totalStaked))
}

// refreshAllLocked refreshes and commits every pool. Callers hold c.mu.
func (c *Controller) refreshAllLocked() {
	for i := range c.pools {
		pool := c.pools[i]
		c.refreshPool(&pool)
		c.commitPool(pool)
	}
}

// RefreshPool brings a single pool's accumulator current. Public and callable
// by anyone; refreshing is always safe.
func (c *Controller) RefreshPool(id types.PoolID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return err
	}
	c.refreshPool(&pool)
	c.commitPool(pool)
	return nil
}

// RefreshAll brings every pool's accumulator current. Public and callable by
// anyone; used internally before any rate change so no pool loses rewards
// accrued under the old rate.
func (c *Controller) RefreshAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refreshAllLocked()
}
