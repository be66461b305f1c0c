/*

Asset and account naming conventions shared by the engine, the ledger and the
daemon wiring. Accounts are opaque strings to the ledger; these helpers keep
the engine's module accounts in one place.

*/

package types

import "fmt"

const (
	// RewardEscrowAccount holds the undistributed reward supply pulled in by
	// start_emissions; every settlement pays out of it.
	RewardEscrowAccount = "emissary/rewards"

	// poolEscrowPrefix namespaces the per-pool staked-asset escrow accounts.
	poolEscrowPrefix = "emissary/pool"
)

// PoolEscrowAccount names the escrow account holding a pool's staked assets.
// The pool's live total-staked balance is, always, this account's balance.
func PoolEscrowAccount(id PoolID) string {
	return fmt.Sprintf("%s/%d", poolEscrowPrefix, id)
}
