package forge

import "errors"

// Lifecycle and definition errors.
var (
	ErrItemNotFound     = errors.New("forge: item type not found")
	ErrNotAdmin         = errors.New("forge: caller is not the item admin")
	ErrNotAuthorized    = errors.New("forge: caller is not authorized")
	ErrFrozen           = errors.New("forge: item type is frozen")
	ErrCreationDisabled = errors.New("forge: item creation is disabled")
	ErrKindChange       = errors.New("forge: item kind cannot change")
	ErrIDCollision      = errors.New("forge: identity collides with another namespace")
	ErrUnknownMutator   = errors.New("forge: mutator module not registered")
	ErrUnknownAtom      = errors.New("forge: atom not registered")
	ErrUnknownTarget    = errors.New("forge: component target does not resolve")
)

// Craft errors.
var (
	ErrBadAmount       = errors.New("forge: bad craft amount")
	ErrSlotCount       = errors.New("forge: instance count does not match blueprint slots")
	ErrCraftVetoed     = errors.New("forge: craft vetoed by mutator")
	ErrTierRange       = errors.New("forge: tier above 7")
	ErrMissingResource = errors.New("forge: insufficient resources")
	ErrWrongOrigin     = errors.New("forge: unique input from wrong item type")
	ErrTierTooLow      = errors.New("forge: unique input below minimum tier")
	ErrSupplyOverflow  = errors.New("forge: supply overflow")
)

// Use, consume, and transfer errors.
var (
	ErrTokenNotFound  = errors.New("forge: token not found")
	ErrNotUnique      = errors.New("forge: not a unique token")
	ErrNotFungible    = errors.New("forge: not a fungible item")
	ErrDestroyed      = errors.New("forge: token is destroyed")
	ErrNoMutator      = errors.New("forge: item type has no mutator")
	ErrTransferDenied = errors.New("forge: transfer denied by mutator")
)

// Call discipline errors.
var (
	ErrReentrant     = errors.New("forge: re-entrant call from module")
	ErrEmptyCaller   = errors.New("forge: empty caller")
	ErrEmptyOperator = errors.New("forge: empty operator")
	ErrEmptyAdmin    = errors.New("forge: empty admin")
	ErrSelfApproval  = errors.New("forge: owner cannot approve itself")
)
