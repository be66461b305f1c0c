/*

ShareWrapper is the rebase-safe share accounting collaborator: it wraps an
underlying asset position into wrapper shares minted and burned proportionally
to the vault's live underlying balance, so a rebase or donation of the
underlying changes every holder's claim pro-rata instead of breaking it.

*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrWrapperConfig = errors.New("share wrapper configuration is invalid")
	ErrDustAmount    = errors.New("amount too small to represent in shares")
	ErrNoShareSupply = errors.New("no wrapper shares outstanding")
)

type ShareWrapper struct {
	bank            *Bank
	underlyingDenom string
	shareDenom      string
	vaultAccount    string
}

// NewShareWrapper creates a wrapper issuing shareDenom against the underlying
// balance held by vaultAccount.
func NewShareWrapper(bank *Bank, underlyingDenom, shareDenom, vaultAccount string) (*ShareWrapper, error) {
	if bank == nil {
		return nil, errors.Join(ErrWrapperConfig, errors.New("bank is nil"))
	}
	if underlyingDenom == "" || shareDenom == "" || vaultAccount == "" {
		return nil, errors.Join(ErrWrapperConfig, errors.New("denoms and vault account must be set"))
	}
	if underlyingDenom == shareDenom {
		return nil, errors.Join(ErrWrapperConfig, errors.New("share denom must differ from underlying denom"))
	}
	return &ShareWrapper{
		bank:            bank,
		underlyingDenom: underlyingDenom,
		shareDenom:      shareDenom,
		vaultAccount:    vaultAccount,
	}, nil
}

// Wrap pulls amount of the underlying from account into the vault and mints
// shares = amount * supply / vault_balance (1:1 when no shares exist yet).
func (w *ShareWrapper) Wrap(account string, amount sdkmath.Int) (sdkmath.Int, error) {
	if err := validateMovement(w.underlyingDenom, account, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}

	supply := w.bank.TotalSupply(w.shareDenom)
	vaultBalance := w.bank.Balance(w.underlyingDenom, w.vaultAccount)

	shares := amount
	if supply.IsPositive() && vaultBalance.IsPositive() {
		shares = amount.Mul(supply).Quo(vaultBalance)
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s %s against %s shares over %s underlying",
			ErrDustAmount, amount.String(), w.underlyingDenom, supply.String(), vaultBalance.String())
	}

	if err := w.bank.Transfer(w.underlyingDenom, account, w.vaultAccount, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := w.bank.Mint(w.shareDenom, account, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return shares, nil
}

// Unwrap burns shares from account and pays out the pro-rata underlying,
// amount = shares * vault_balance / supply.
func (w *ShareWrapper) Unwrap(account string, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := validateMovement(w.shareDenom, account, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}

	supply := w.bank.TotalSupply(w.shareDenom)
	if !supply.IsPositive() {
		return sdkmath.ZeroInt(), ErrNoShareSupply
	}
	vaultBalance := w.bank.Balance(w.underlyingDenom, w.vaultAccount)
	amount := shares.Mul(vaultBalance).Quo(supply)

	if err := w.bank.Burn(w.shareDenom, account, shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if amount.IsPositive() {
		if err := w.bank.Transfer(w.underlyingDenom, w.vaultAccount, account, amount); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}
	return amount, nil
}
