package gov

import (
	sdkmath "cosmossdk.io/math"
)

// PowerOracle defines the interface for querying governance power.
// This interface abstracts away where voting power actually lives (a
// staking module, a snapshot service, a test fixture), allowing the
// farm engine to read power without knowing its source.
//
// Implementations must be safe for concurrent use. Power is always
// reported live: callers re-query at the moment of use and never cache
// results across operations.
type PowerOracle interface {
	// PowerOf returns the current governance power of a single account.
	// Unknown accounts report zero power.
	PowerOf(account string) sdkmath.Int

	// TotalPower returns the current total governance power across all
	// accounts known to the oracle.
	TotalPower() sdkmath.Int
}
