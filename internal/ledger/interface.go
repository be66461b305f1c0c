package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// Movement is one value transfer: Amount of Denom from one account to another.
type Movement struct {
	Denom  string      `json:"denom"`
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount sdkmath.Int `json:"amount"`
}

// Ledger defines the interface the engine uses to move and observe assets.
// This interface abstracts away the specific bookkeeping implementation,
// allowing for different ledgers (in-memory bank, chain adapter, test stubs).
type Ledger interface {
	// Balance returns the current balance of denom held by account. Unknown
	// accounts and denoms hold zero.
	Balance(denom, account string) sdkmath.Int

	// Transfer moves amount of denom between two accounts. It fails loudly on
	// a short balance or an invalid movement, leaving state untouched.
	Transfer(denom, from, to string, amount sdkmath.Int) error

	// TransferBatch applies every movement or none of them. Used by the
	// engine so a settlement's payout and stake move commit atomically.
	TransferBatch(movements []Movement) error
}
