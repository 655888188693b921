// Package ledger is the balance authority for atoms, crafted items,
// and the payment currency. It follows multi-token semantics: balances
// are keyed by (identity, owner), supply is tracked per identity, and
// operator approval is an all-or-nothing grant per (owner, operator)
// pair.
package ledger

import "github.com/holiman/uint256"

// Ledger is the accounting contract the crafting core drives. The core
// is the sole authorized writer; authorization of the external caller
// happens above this layer.
type Ledger interface {
	// BalanceOf returns owner's balance of id.
	BalanceOf(owner string, id *uint256.Int) *uint256.Int
	// Exists reports whether id has live supply.
	Exists(id *uint256.Int) bool
	// TotalSupply returns the live supply of id.
	TotalSupply(id *uint256.Int) *uint256.Int

	// Mint credits amount of id to owner and grows supply.
	Mint(owner string, id, amount *uint256.Int) error
	// Burn debits amount of id from owner and shrinks supply.
	Burn(owner string, id, amount *uint256.Int) error
	// BurnBatch burns several identities atomically: every line is
	// validated before any balance moves.
	BurnBatch(owner string, ids, amounts []*uint256.Int) error
	// Transfer moves amount of id between owners without touching
	// supply.
	Transfer(from, to string, id, amount *uint256.Int) error

	// SetApprovalForAll grants or revokes operator rights over every
	// identity owner holds.
	SetApprovalForAll(owner, operator string, approved bool) error
	// IsApprovedForAll reports the current grant.
	IsApprovedForAll(owner, operator string) bool
}

// UpdateFunc observes committed balance changes. Mint reports from="",
// burn reports to="". Observers run after the change is applied and
// cannot fail the operation.
type UpdateFunc func(from, to string, id, amount *uint256.Int)

// TransferGate can veto a transfer before it applies. Gates see only
// Transfer calls; mint and burn are core-internal and not gated.
type TransferGate func(from, to string, id, amount *uint256.Int) error
