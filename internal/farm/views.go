/*

Read models. Views refresh pool working copies so reported accumulators and
pending rewards are current, but never commit them: a view is not a state
transition.

*/

package farm

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/types"
)

// Snapshot captures the whole engine: every pool with its live staked
// balance, the undistributed reward escrow, and global rate and weight.
func (c *Controller) Snapshot() types.EngineSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	positionCounts := make(map[types.PoolID]int, len(c.pools))
	for key := range c.positions {
		positionCounts[key.pool]++
	}

	pools := make([]types.PoolSnapshot, 0, len(c.pools))
	for i := range c.pools {
		pool := c.pools[i]
		c.refreshPool(&pool)
		pools = append(pools, types.PoolSnapshot{
			Pool:          pool,
			TotalStaked:   c.ledger.Balance(pool.StakedDenom, types.PoolEscrowAccount(pool.ID)),
			PositionCount: positionCounts[pool.ID],
		})
	}

	return types.EngineSnapshot{
		Timestamp:         time.Unix(c.now(), 0).UTC(),
		EmissionsStarted:  c.emissionsStarted,
		TotalEmissionRate: c.totalEmissionRate,
		TotalWeight:       c.totalWeight,
		RewardEscrow:      c.ledger.Balance(c.params.RewardDenom, types.RewardEscrowAccount),
		Pools:             pools,
		PositionCount:     len(c.positions),
		VoterCount:        len(c.voters),
	}
}

// PoolView reports one pool with its live staked balance.
func (c *Controller) PoolView(id types.PoolID) (types.PoolSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return types.PoolSnapshot{}, err
	}
	c.refreshPool(&pool)

	count := 0
	for key := range c.positions {
		if key.pool == id {
			count++
		}
	}

	return types.PoolSnapshot{
		Pool:          pool,
		TotalStaked:   c.ledger.Balance(pool.StakedDenom, types.PoolEscrowAccount(id)),
		PositionCount: count,
	}, nil
}

// PositionView reports account's position in one pool with its live pending
// reward.
func (c *Controller) PositionView(account string, id types.PoolID) (types.PositionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return types.PositionView{}, err
	}
	c.refreshPool(&pool)

	pos, exists := c.loadPosition(id, account)
	if !exists {
		return types.PositionView{}, errors.Join(ErrNoPosition,
			fmt.Errorf("account %s in pool %d", account, id))
	}

	return types.PositionView{
		Position:      pos,
		PendingReward: c.pendingReward(pool, pos),
	}, nil
}

// PositionsOf reports every position account holds, in pool order.
func (c *Controller) PositionsOf(account string) []types.PositionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]types.PositionView, 0)
	for i := range c.pools {
		pool := c.pools[i]
		pos, exists := c.loadPosition(pool.ID, account)
		if !exists {
			continue
		}
		c.refreshPool(&pool)
		views = append(views, types.PositionView{
			Position:      pos,
			PendingReward: c.pendingReward(pool, pos),
		})
	}
	return views
}

// VoterView reports account's live vote. A participant with no live vote
// reports zero power and no allocations.
func (c *Controller) VoterView(account string) types.VoterView {
	c.mu.Lock()
	defer c.mu.Unlock()

	voter, exists := c.voters[account]
	if !exists {
		return types.VoterView{
			Account:     account,
			Power:       sdkmath.ZeroInt(),
			Allocations: []types.VoteAllocation{},
		}
	}

	allocations := make([]types.VoteAllocation, 0, len(voter.Pools))
	for _, id := range voter.Pools {
		allocations = append(allocations, types.VoteAllocation{
			PoolID: id,
			Weight: voter.Allocations[id],
		})
	}

	return types.VoterView{
		Account:     account,
		Power:       voter.Power,
		Allocations: allocations,
	}
}
