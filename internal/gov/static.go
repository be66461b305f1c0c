package gov

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAccount = errors.New("account is invalid")
	ErrInvalidPower   = errors.New("power is invalid")
)

var govLogger = logger.GetForComponent("gov_oracle")

// StaticOracle is an in-process PowerOracle backed by an explicit table
// of account powers. Powers only change when SetPower is called, which
// makes it suitable both for production deployments that ingest power
// snapshots and for tests that need deterministic power distributions.
type StaticOracle struct {
	mu     sync.RWMutex
	powers map[string]sdkmath.Int
	total  sdkmath.Int
}

// NewStaticOracle creates an empty oracle with zero total power.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		powers: make(map[string]sdkmath.Int),
		total:  sdkmath.ZeroInt(),
	}
}

// SetPower records the current governance power of an account,
// replacing any previous value. Setting an account to zero removes it
// from the table. The maintained total always equals the sum of all
// recorded powers.
func (o *StaticOracle) SetPower(account string, power sdkmath.Int) error {
	if account == "" {
		return errors.Join(ErrInvalidAccount, errors.New("account cannot be empty"))
	}
	if power.IsNil() {
		return errors.Join(ErrInvalidPower, fmt.Errorf("power for %s is nil", account))
	}
	if power.IsNegative() {
		return errors.Join(ErrInvalidPower, fmt.Errorf("power for %s is negative: %s", account, power.String()))
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	previous, exists := o.powers[account]
	if !exists {
		previous = sdkmath.ZeroInt()
	}

	o.total = o.total.Sub(previous).Add(power)
	if power.IsZero() {
		delete(o.powers, account)
	} else {
		o.powers[account] = power
	}

	govLogger.Debug().
		Str("account", account).
		Str("power", power.String()).
		Str("total_power", o.total.String()).
		Msg("Governance power updated")

	return nil
}

// PowerOf returns the recorded power of an account, or zero if the
// account is unknown.
func (o *StaticOracle) PowerOf(account string) sdkmath.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	power, exists := o.powers[account]
	if !exists {
		return sdkmath.ZeroInt()
	}
	return power
}

// TotalPower returns the sum of all recorded powers.
func (o *StaticOracle) TotalPower() sdkmath.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.total
}
