/*

Bank is the in-memory fungible-asset ledger: plain mint/burn/transfer
bookkeeping keyed by (denom, account). It is the concrete value-transfer
collaborator behind the Ledger interface; the engine holds every pool's staked
assets and the undistributed reward supply in accounts here.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/solstice-fi/emissary/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidDenom        = errors.New("denom is empty")
	ErrInvalidAccount      = errors.New("account is empty")
	ErrInvalidAmount       = errors.New("amount is nil or negative")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type Bank struct {
	mu       sync.RWMutex
	balances map[string]map[string]sdkmath.Int // denom -> account -> amount
	log      zerolog.Logger
}

// NewBank creates an empty in-memory ledger.
func NewBank() *Bank {
	return &Bank{
		balances: make(map[string]map[string]sdkmath.Int),
		log:      logger.GetForComponent("bank_ledger"),
	}
}

// Balance returns the current balance of denom held by account. Unknown
// accounts and denoms hold zero.
func (b *Bank) Balance(denom, account string) sdkmath.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balanceLocked(denom, account)
}

// TotalSupply returns the sum of all balances of denom.
func (b *Bank) TotalSupply(denom string) sdkmath.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := sdkmath.ZeroInt()
	for _, amount := range b.balances[denom] {
		total = total.Add(amount)
	}
	return total
}

// Mint creates amount of denom in account.
func (b *Bank) Mint(denom, account string, amount sdkmath.Int) error {
	if err := validateMovement(denom, account, amount); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.setLocked(denom, account, b.balanceLocked(denom, account).Add(amount))
	return nil
}

// Burn destroys amount of denom from account, failing on a short balance.
func (b *Bank) Burn(denom, account string, amount sdkmath.Int) error {
	if err := validateMovement(denom, account, amount); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balanceLocked(denom, account)
	if balance.LT(amount) {
		return fmt.Errorf("%w: burn %s %s from %s holding %s",
			ErrInsufficientBalance, amount.String(), denom, account, balance.String())
	}
	b.setLocked(denom, account, balance.Sub(amount))
	return nil
}

// Transfer moves amount of denom between two accounts, failing loudly on a
// short balance and leaving state untouched on any error.
func (b *Bank) Transfer(denom, from, to string, amount sdkmath.Int) error {
	return b.TransferBatch([]Movement{{Denom: denom, From: from, To: to, Amount: amount}})
}

// TransferBatch applies every movement in order or none of them. Sufficiency
// is checked sequentially against a scratch view, so a later movement may
// spend funds received by an earlier one; nothing is written back until the
// whole batch clears.
func (b *Bank) TransferBatch(movements []Movement) error {
	for i, m := range movements {
		if err := validateMovement(m.Denom, m.From, m.Amount); err != nil {
			return fmt.Errorf("movement %d: %w", i, err)
		}
		if m.To == "" {
			return fmt.Errorf("movement %d: %w", i, ErrInvalidAccount)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	type key struct{ denom, account string }
	scratch := make(map[key]sdkmath.Int)
	view := func(denom, account string) sdkmath.Int {
		if v, ok := scratch[key{denom, account}]; ok {
			return v
		}
		return b.balanceLocked(denom, account)
	}

	for i, m := range movements {
		fromBalance := view(m.Denom, m.From)
		if fromBalance.LT(m.Amount) {
			b.log.Debug().
				Str("denom", m.Denom).
				Str("from", m.From).
				Str("amount", m.Amount.String()).
				Str("balance", fromBalance.String()).
				Msg("Transfer batch rejected on short balance")
			return fmt.Errorf("movement %d: %w: %s %s from %s holding %s",
				i, ErrInsufficientBalance, m.Amount.String(), m.Denom, m.From, fromBalance.String())
		}
		scratch[key{m.Denom, m.From}] = fromBalance.Sub(m.Amount)
		scratch[key{m.Denom, m.To}] = view(m.Denom, m.To).Add(m.Amount)
	}

	for k, v := range scratch {
		b.setLocked(k.denom, k.account, v)
	}
	return nil
}

func (b *Bank) balanceLocked(denom, account string) sdkmath.Int {
	accounts, ok := b.balances[denom]
	if !ok {
		return sdkmath.ZeroInt()
	}
	amount, ok := accounts[account]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return amount
}

func (b *Bank) setLocked(denom, account string, amount sdkmath.Int) {
	accounts, ok := b.balances[denom]
	if !ok {
		accounts = make(map[string]sdkmath.Int)
		b.balances[denom] = accounts
	}
	if amount.IsZero() {
		delete(accounts, account)
		return
	}
	accounts[account] = amount
}

func validateMovement(denom, account string, amount sdkmath.Int) error {
	if denom == "" {
		return ErrInvalidDenom
	}
	if account == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
