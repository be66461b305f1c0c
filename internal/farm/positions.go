/*

Position settlement. Deposit, withdraw and claim all follow one shape:

 1. refresh the pool working copy
 2. read the position working copy
 3. compute pending = derived * acc / SCALE - debt and stage its payout
 4. stage the stake mutation and its asset movement
 5. recompute derived stake from the post-operation staked amount
 6. rebase debt = derived' * acc / SCALE, so pending is exactly zero after
    every settled operation
 7. apply all movements as one all-or-nothing batch, commit, emit events

A failed transfer batch aborts the entire operation; no pool, position or
balance mutation becomes visible.

*/

package farm

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/types"
)

// pendingReward computes the reward owed to a position against an already
// refreshed pool working copy.
func (c *Controller) pendingReward(pool types.Pool, pos types.Position) sdkmath.Int {
	if pos.DerivedStake.IsZero() {
		return sdkmath.ZeroInt()
	}
	return pos.DerivedStake.
		Mul(pool.AccRewardPerShare).
		Quo(c.params.PrecisionFactor).
		Sub(pos.RewardDebt)
}

// Deposit stakes amount of the pool's asset for account, settling any pending
// reward first. Returns the reward paid out during settlement.
func (c *Controller) Deposit(account string, id types.PoolID, amount sdkmath.Int) (sdkmath.Int, error) {
	if account == "" {
		return sdkmath.Int{}, errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, errors.Join(ErrInvalidAmount, errors.New("deposit amount must be positive"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return sdkmath.Int{}, err
	}
	c.refreshPool(&pool)

	pos, _ := c.loadPosition(id, account)
	pending := c.pendingReward(pool, pos)

	escrow := types.PoolEscrowAccount(id)
	var movements []ledger.Movement
	if pending.IsPositive() {
		movements = append(movements, ledger.Movement{
			Denom:  c.params.RewardDenom,
			From:   types.RewardEscrowAccount,
			To:     account,
			Amount: pending,
		})
	}
	movements = append(movements, ledger.Movement{
		Denom:  pool.StakedDenom,
		From:   account,
		To:     escrow,
		Amount: amount,
	})

	newStaked := pos.StakedAmount.Add(amount)
	poolTotal := c.ledger.Balance(pool.StakedDenom, escrow).Add(amount)
	newDerived := c.deriveStake(account, newStaked, poolTotal)
	newDebt := newDerived.Mul(pool.AccRewardPerShare).Quo(c.params.PrecisionFactor)

	if err := c.ledger.TransferBatch(movements); err != nil {
		return sdkmath.Int{}, errors.Join(ErrTransferRejected, fmt.Errorf("deposit to pool %d: %w", id, err))
	}

	pos.StakedAmount = newStaked
	pos.DerivedStake = newDerived
	pos.RewardDebt = newDebt
	c.commitPool(pool)
	c.commitPosition(pos)

	farmLogger.Info().
		Str("account", account).
		Uint64("pool_id", uint64(id)).
		Str("amount", amount.String()).
		Str("paid_reward", pending.String()).
		Str("derived_stake", newDerived.String()).
		Msg("Deposit settled")

	events := []types.Event{{
		Kind:    types.EventDeposit,
		PoolID:  id,
		Account: account,
		Denom:   pool.StakedDenom,
		Amount:  amount,
	}}
	if pending.IsPositive() {
		events = append(events, types.Event{
			Kind:    types.EventRewardPaid,
			PoolID:  id,
			Account: account,
			Denom:   c.params.RewardDenom,
			Amount:  pending,
		})
	}
	c.emit(events...)

	return pending, nil
}

// Withdraw unstakes amount of the pool's asset for account, settling any
// pending reward first. Requesting more than the staked amount rejects the
// whole operation before any payout. Returns the reward paid out.
func (c *Controller) Withdraw(account string, id types.PoolID, amount sdkmath.Int) (sdkmath.Int, error) {
	if account == "" {
		return sdkmath.Int{}, errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, errors.Join(ErrInvalidAmount, errors.New("withdraw amount must be positive"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return sdkmath.Int{}, err
	}
	c.refreshPool(&pool)

	pos, exists := c.loadPosition(id, account)
	if !exists {
		return sdkmath.Int{}, errors.Join(ErrNoPosition,
			fmt.Errorf("account %s has nothing staked in pool %d", account, id))
	}
	if amount.GT(pos.StakedAmount) {
		return sdkmath.Int{}, errors.Join(ErrInsufficientStake,
			fmt.Errorf("requested %s, staked %s", amount.String(), pos.StakedAmount.String()))
	}

	pending := c.pendingReward(pool, pos)

	escrow := types.PoolEscrowAccount(id)
	var movements []ledger.Movement
	if pending.IsPositive() {
		movements = append(movements, ledger.Movement{
			Denom:  c.params.RewardDenom,
			From:   types.RewardEscrowAccount,
			To:     account,
			Amount: pending,
		})
	}
	movements = append(movements, ledger.Movement{
		Denom:  pool.StakedDenom,
		From:   escrow,
		To:     account,
		Amount: amount,
	})

	newStaked := pos.StakedAmount.Sub(amount)
	poolTotal := c.ledger.Balance(pool.StakedDenom, escrow).Sub(amount)
	newDerived := c.deriveStake(account, newStaked, poolTotal)
	newDebt := newDerived.Mul(pool.AccRewardPerShare).Quo(c.params.PrecisionFactor)

	if err := c.ledger.TransferBatch(movements); err != nil {
		return sdkmath.Int{}, errors.Join(ErrTransferRejected, fmt.Errorf("withdraw from pool %d: %w", id, err))
	}

	pos.StakedAmount = newStaked
	pos.DerivedStake = newDerived
	pos.RewardDebt = newDebt
	c.commitPool(pool)
	c.commitPosition(pos)

	farmLogger.Info().
		Str("account", account).
		Uint64("pool_id", uint64(id)).
		Str("amount", amount.String()).
		Str("paid_reward", pending.String()).
		Str("remaining_stake", newStaked.String()).
		Msg("Withdrawal settled")

	events := []types.Event{{
		Kind:    types.EventWithdraw,
		PoolID:  id,
		Account: account,
		Denom:   pool.StakedDenom,
		Amount:  amount,
	}}
	if pending.IsPositive() {
		events = append(events, types.Event{
			Kind:    types.EventRewardPaid,
			PoolID:  id,
			Account: account,
			Denom:   c.params.RewardDenom,
			Amount:  pending,
		})
	}
	c.emit(events...)

	return pending, nil
}

// stagedClaim is one pool's settlement prepared but not committed.
type stagedClaim struct {
	pool    types.Pool
	pos     types.Position
	exists  bool
	pending sdkmath.Int
}

// stageClaim refreshes one pool working copy and stages a claim settlement
// for account: pending payout, recomputed derived stake, rebased debt. The
// stake itself is untouched. Callers hold c.mu.
func (c *Controller) stageClaim(account string, id types.PoolID) (stagedClaim, error) {
	pool, err := c.loadPool(id)
	if err != nil {
		return stagedClaim{}, err
	}
	c.refreshPool(&pool)

	pos, exists := c.loadPosition(id, account)
	staged := stagedClaim{pool: pool, pos: pos, exists: exists, pending: sdkmath.ZeroInt()}
	if !exists {
		return staged, nil
	}

	staged.pending = c.pendingReward(pool, pos)

	poolTotal := c.ledger.Balance(pool.StakedDenom, types.PoolEscrowAccount(id))
	staged.pos.DerivedStake = c.deriveStake(account, pos.StakedAmount, poolTotal)
	staged.pos.RewardDebt = staged.pos.DerivedStake.
		Mul(pool.AccRewardPerShare).
		Quo(c.params.PrecisionFactor)

	return staged, nil
}

// Claim pays out account's pending reward in one pool without touching the
// stake. Claiming with no position is a successful no-op. Returns the amount
// paid.
func (c *Controller) Claim(account string, id types.PoolID) (sdkmath.Int, error) {
	if account == "" {
		return sdkmath.Int{}, errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	staged, err := c.stageClaim(account, id)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if staged.pending.IsPositive() {
		err := c.ledger.TransferBatch([]ledger.Movement{{
			Denom:  c.params.RewardDenom,
			From:   types.RewardEscrowAccount,
			To:     account,
			Amount: staged.pending,
		}})
		if err != nil {
			return sdkmath.Int{}, errors.Join(ErrTransferRejected, fmt.Errorf("claim on pool %d: %w", id, err))
		}
	}

	c.commitPool(staged.pool)
	if staged.exists {
		c.commitPosition(staged.pos)
	}

	if staged.pending.IsPositive() {
		farmLogger.Info().
			Str("account", account).
			Uint64("pool_id", uint64(id)).
			Str("paid_reward", staged.pending.String()).
			Msg("Claim settled")

		c.emit(types.Event{
			Kind:    types.EventRewardPaid,
			PoolID:  id,
			Account: account,
			Denom:   c.params.RewardDenom,
			Amount:  staged.pending,
		})
	}

	return staged.pending, nil
}

// ClaimMany settles claims across several pools as one atomic operation.
// Every pool id is validated before anything settles; duplicate ids are
// rejected. Returns the total reward paid across all pools.
func (c *Controller) ClaimMany(account string, ids []types.PoolID) (sdkmath.Int, error) {
	if account == "" {
		return sdkmath.Int{}, errors.Join(ErrInvalidAccount, errors.New("account is empty"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[types.PoolID]struct{}, len(ids))
	for _, id := range ids {
		if _, err := c.loadPool(id); err != nil {
			return sdkmath.Int{}, err
		}
		if _, dup := seen[id]; dup {
			return sdkmath.Int{}, errors.Join(ErrDuplicatePool, fmt.Errorf("pool %d claimed twice", id))
		}
		seen[id] = struct{}{}
	}

	total := sdkmath.ZeroInt()
	stagings := make([]stagedClaim, 0, len(ids))
	var movements []ledger.Movement
	for _, id := range ids {
		staged, err := c.stageClaim(account, id)
		if err != nil {
			return sdkmath.Int{}, err
		}
		stagings = append(stagings, staged)

		if staged.pending.IsPositive() {
			total = total.Add(staged.pending)
			movements = append(movements, ledger.Movement{
				Denom:  c.params.RewardDenom,
				From:   types.RewardEscrowAccount,
				To:     account,
				Amount: staged.pending,
			})
		}
	}

	if len(movements) > 0 {
		if err := c.ledger.TransferBatch(movements); err != nil {
			return sdkmath.Int{}, errors.Join(ErrTransferRejected, fmt.Errorf("claiming %d pools: %w", len(ids), err))
		}
	}

	var events []types.Event
	for _, staged := range stagings {
		c.commitPool(staged.pool)
		if staged.exists {
			c.commitPosition(staged.pos)
		}
		if staged.pending.IsPositive() {
			events = append(events, types.Event{
				Kind:    types.EventRewardPaid,
				PoolID:  staged.pool.ID,
				Account: account,
				Denom:   c.params.RewardDenom,
				Amount:  staged.pending,
			})
		}
	}

	if total.IsPositive() {
		farmLogger.Info().
			Str("account", account).
			Int("pools", len(ids)).
			Str("paid_reward", total.String()).
			Msg("Batch claim settled")
	}
	c.emit(events...)

	return total, nil
}

// PendingReward reports the reward account could claim from a pool right now.
// Read-only: the refresh happens on a working copy that is never committed.
func (c *Controller) PendingReward(account string, id types.PoolID) (sdkmath.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, err := c.loadPool(id)
	if err != nil {
		return sdkmath.Int{}, err
	}
	c.refreshPool(&pool)

	pos, exists := c.loadPosition(id, account)
	if !exists {
		return sdkmath.ZeroInt(), nil
	}
	return c.pendingReward(pool, pos), nil
}
