/*

Pool registry and emission bootstrap. Pools are append-only: registered once
with a stable integer id, never deleted, their emission rate mutated only by
the rebalance step. Reserved weight guarantees a new pool a slice of emissions
before organic votes arrive; releasing it hands the pool fully to voters.

*/

package farm

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/types"
)

// RegisterPool appends a pool for a staked asset not served by any existing
// pool. reservedWeight counts toward the pool's weight and the global total
// but belongs to no voter. With refreshFirst set, every pool is refreshed
// before the global weight changes, so the next rebalance cannot reprice
// rewards accrued under the old weights.
func (c *Controller) RegisterPool(stakedDenom string, reservedWeight sdkmath.Int, refreshFirst bool) (types.PoolID, error) {
	if stakedDenom == "" {
		return 0, errors.Join(ErrInvalidDenom, errors.New("staked denom is empty"))
	}
	if reservedWeight.IsNil() || reservedWeight.IsNegative() {
		return 0, errors.Join(ErrInvalidAmount, errors.New("reserved weight is nil or negative"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.poolsByDenom[stakedDenom]; exists {
		return 0, errors.Join(ErrPoolExists,
			fmt.Errorf("denom %s already staked by pool %d", stakedDenom, existing))
	}

	if refreshFirst {
		c.refreshAllLocked()
	}

	pool := types.Pool{
		ID:                types.PoolID(len(c.pools) + 1),
		StakedDenom:       stakedDenom,
		EmissionRate:      sdkmath.ZeroInt(),
		AccRewardPerShare: sdkmath.ZeroInt(),
		LastDistribution:  c.now(),
		ReservedWeight:    reservedWeight,
		VotedWeight:       sdkmath.ZeroInt(),
	}

	c.pools = append(c.pools, pool)
	c.poolsByDenom[stakedDenom] = pool.ID
	c.totalWeight = c.totalWeight.Add(reservedWeight)

	farmLogger.Info().
		Uint64("pool_id", uint64(pool.ID)).
		Str("staked_denom", stakedDenom).
		Str("reserved_weight", reservedWeight.String()).
		Str("total_weight", c.totalWeight.String()).
		Msg("Pool registered")

	c.emit(types.Event{
		Kind:   types.EventPoolRegistered,
		PoolID: pool.ID,
		Denom:  stakedDenom,
		Amount: reservedWeight,
	})

	return pool.ID, nil
}

// ReleaseReservedWeight removes exactly the pool's bootstrap weight from the
// pool and the global total. Callable once per pool; a second release is
// rejected. With refreshFirst set, all pools are refreshed before the weight
// change for the same reason as RegisterPool.
func (c *Controller) ReleaseReservedWeight(id types.PoolID, refreshFirst bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return err
	}
	if pool.ReservedWeight.IsZero() {
		return errors.Join(ErrReservedWeightReleased, fmt.Errorf("pool %d", id))
	}

	if refreshFirst {
		c.refreshAllLocked()
		// The working copy predates the refresh; reload it.
		pool, _ = c.loadPool(id)
	}

	released := pool.ReservedWeight
	pool.ReservedWeight = sdkmath.ZeroInt()
	c.totalWeight = c.totalWeight.Sub(released)
	c.commitPool(pool)

	farmLogger.Info().
		Uint64("pool_id", uint64(id)).
		Str("released", released.String()).
		Str("total_weight", c.totalWeight.String()).
		Msg("Reserved weight released")

	c.emit(types.Event{
		Kind:   types.EventReservedWeightReleased,
		PoolID: id,
		Amount: released,
	})

	return nil
}

// StartEmissions pulls the entire reward supply from the funder into the
// rewards escrow and fixes the global emission rate to supply divided by the
// distribution window. Callable exactly once; every pool's slice of the rate
// is assigned by subsequent rebalances.
func (c *Controller) StartEmissions(funder string, totalSupply sdkmath.Int) error {
	if funder == "" {
		return errors.Join(ErrInvalidAccount, errors.New("funder is empty"))
	}
	if totalSupply.IsNil() || !totalSupply.IsPositive() {
		return errors.Join(ErrInvalidAmount, errors.New("total supply must be positive"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emissionsStarted {
		return ErrEmissionsStarted
	}

	err := c.ledger.TransferBatch([]ledger.Movement{{
		Denom:  c.params.RewardDenom,
		From:   funder,
		To:     types.RewardEscrowAccount,
		Amount: totalSupply,
	}})
	if err != nil {
		return errors.Join(ErrTransferRejected, fmt.Errorf("funding emissions: %w", err))
	}

	c.totalEmissionRate = totalSupply.QuoRaw(c.params.EmissionWindowSeconds)
	c.emissionsStarted = true

	farmLogger.Info().
		Str("funder", funder).
		Str("total_supply", totalSupply.String()).
		Str("rate_per_second", c.totalEmissionRate.String()).
		Int64("window_seconds", c.params.EmissionWindowSeconds).
		Msg("Emissions started")

	c.emit(types.Event{
		Kind:    types.EventEmissionsStarted,
		Account: funder,
		Denom:   c.params.RewardDenom,
		Amount:  totalSupply,
	})

	return nil
}
