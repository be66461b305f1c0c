/*

Weight allocation. Votes are reset-then-reallocate: casting a vote first
removes every allocation from the participant's previous vote, then pins the
new allocations to the participant's live governance power. Weights only
become emission rates when rebalance runs, and rebalance refreshes every pool
first so rewards accrued under the old rates are recorded before the rates
move.

*/

package farm

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/types"
)

// resetLocked removes every live allocation of account from its pools and the
// global total, then forgets the voter. Reports whether anything was cleared.
// Callers hold c.mu.
func (c *Controller) resetLocked(account string) bool {
	voter, exists := c.voters[account]
	if !exists {
		return false
	}

	for _, id := range voter.Pools {
		alloc := voter.Allocations[id]
		if alloc.IsNil() || alloc.IsZero() {
			continue
		}
		// Pools are append-only; a recorded id always resolves.
		pool, _ := c.loadPool(id)
		pool.VotedWeight = pool.VotedWeight.Sub(alloc)
		c.commitPool(pool)
		c.totalWeight = c.totalWeight.Sub(alloc)
	}

	delete(c.voters, account)
	return true
}

// Vote replaces account's entire allocation with one derived from the given
// per-pool weights. The weights fix proportions only; the recorded
// allocations are normalized so their sum equals account's governance power
// at this instant. Integer remainder from the normalization is handed out one
// unit per pool, in input order, across the pools with nonzero requested
// weight of the same vote.
//
// A participant holding zero governance power casts nothing; the call
// degenerates to a reset of their previous vote.
func (c *Controller) Vote(account string, ids []types.PoolID, weights []sdkmath.Int) error {
	if account == "" {
		return errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}
	if len(ids) != len(weights) {
		return errors.Join(ErrVoteLengthMismatch,
			fmt.Errorf("%d pools, %d weights", len(ids), len(weights)))
	}

	sumWeights := sdkmath.ZeroInt()
	for i, weight := range weights {
		if weight.IsNil() || weight.IsNegative() {
			return errors.Join(ErrInvalidWeight, fmt.Errorf("weight for pool %d", ids[i]))
		}
		sumWeights = sumWeights.Add(weight)
	}
	if sumWeights.IsZero() {
		return ErrZeroWeightSum
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[types.PoolID]struct{}, len(ids))
	for _, id := range ids {
		if _, err := c.loadPool(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return errors.Join(ErrDuplicatePool, fmt.Errorf("pool %d voted twice", id))
		}
		seen[id] = struct{}{}
	}

	cleared := c.resetLocked(account)

	power := c.power.PowerOf(account)
	if power.IsZero() {
		farmLogger.Info().
			Str("account", account).
			Bool("previous_vote_cleared", cleared).
			Msg("Vote cast with zero governance power; treated as reset")
		if cleared {
			c.emit(types.Event{Kind: types.EventVotesReset, Account: account})
		}
		return nil
	}

	// Normalize: proportions come from the caller, magnitude from power.
	allocations := make([]sdkmath.Int, len(ids))
	allocated := sdkmath.ZeroInt()
	for i, weight := range weights {
		allocations[i] = weight.Mul(power).Quo(sumWeights)
		allocated = allocated.Add(allocations[i])
	}

	// Floor division strands less than one unit per pool; hand the strands
	// out so the allocation sum equals power exactly.
	remainder := power.Sub(allocated)
	for i := range allocations {
		if remainder.IsZero() {
			break
		}
		if weights[i].IsPositive() {
			allocations[i] = allocations[i].AddRaw(1)
			remainder = remainder.SubRaw(1)
		}
	}

	voter := types.VoterState{
		Account:     account,
		Power:       power,
		Allocations: make(map[types.PoolID]sdkmath.Int, len(ids)),
	}

	var events []types.Event
	for i, id := range ids {
		if allocations[i].IsZero() {
			continue
		}
		pool, _ := c.loadPool(id)
		pool.VotedWeight = pool.VotedWeight.Add(allocations[i])
		c.commitPool(pool)
		c.totalWeight = c.totalWeight.Add(allocations[i])

		voter.Pools = append(voter.Pools, id)
		voter.Allocations[id] = allocations[i]

		events = append(events, types.Event{
			Kind:    types.EventVoteCast,
			PoolID:  id,
			Account: account,
			Amount:  allocations[i],
		})
	}
	c.voters[account] = voter

	farmLogger.Info().
		Str("account", account).
		Str("power", power.String()).
		Int("pools", len(voter.Pools)).
		Str("total_weight", c.totalWeight.String()).
		Msg("Vote cast")

	c.emit(events...)
	return nil
}

// ResetVotes removes account's entire live allocation. Resetting a
// participant with no votes is a no-op.
func (c *Controller) ResetVotes(account string) error {
	if account == "" {
		return errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cleared := c.resetLocked(account); cleared {
		farmLogger.Info().
			Str("account", account).
			Str("total_weight", c.totalWeight.String()).
			Msg("Votes reset")
		c.emit(types.Event{Kind: types.EventVotesReset, Account: account})
	}
	return nil
}

// Rebalance recomputes every pool's emission rate from the current weights:
// rate_i = total_rate * weight_i / total_weight, floored. Remainder units
// stay unemitted until weights change. All pools are refreshed before any
// rate moves, so rewards accrued under the old rates are recorded at those
// rates. With zero total weight the call is a no-op and forces no refresh.
// Public and callable by anyone. Reports whether rates were recomputed.
func (c *Controller) Rebalance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.totalWeight.IsZero() {
		farmLogger.Debug().Msg("Rebalance skipped: no voting weight allocated")
		return false
	}

	c.refreshAllLocked()

	var events []types.Event
	for i := range c.pools {
		pool := c.pools[i]
		newRate := c.totalEmissionRate.Mul(pool.Weight()).Quo(c.totalWeight)
		if newRate.Equal(pool.EmissionRate) {
			continue
		}
		pool.EmissionRate = newRate
		c.commitPool(pool)

		events = append(events, types.Event{
			Kind:   types.EventRebalance,
			PoolID: pool.ID,
			Denom:  c.params.RewardDenom,
			Amount: newRate,
		})
	}

	farmLogger.Info().
		Int("pools", len(c.pools)).
		Int("rates_changed", len(events)).
		Str("total_rate", c.totalEmissionRate.String()).
		Str("total_weight", c.totalWeight.String()).
		Msg("Rebalance applied")

	c.emit(events...)
	return true
}
