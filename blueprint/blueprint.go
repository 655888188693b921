// Package blueprint defines publisher-authored item types: what kind
// of token an item mints, which components a craft consumes, what it
// costs, and which mutator module steers it. Definitions are validated
// structurally here; balances and ownership are runtime concerns and
// stay out of this package.
package blueprint

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/trait"
)

// Kind distinguishes the two token families an item type can mint.
type Kind string

const (
	// Fungible items are interchangeable; the minted identity is the
	// item-type identity itself.
	Fungible Kind = "fungible"
	// Unique items mint one distinct token per craft, with a derived
	// identity, a tier, and an instance trait set.
	Unique Kind = "unique"
)

// ComponentKind selects how a blueprint line is satisfied.
type ComponentKind string

const (
	// FixedAtom consumes Amount units of one specific atom identity.
	FixedAtom ComponentKind = "fixed-atom"
	// VariableAtom consumes one unit of any atom instance matching the
	// line's criteria. Target is ignored.
	VariableAtom ComponentKind = "variable-atom"
	// FixedItem consumes Amount units of a fungible crafted item.
	FixedItem ComponentKind = "fixed-item"
	// UniqueItem consumes one specific unique token supplied by the
	// crafter. Target, when non-zero, restricts the instance to that
	// originating item type.
	UniqueItem ComponentKind = "unique-item"
)

// Component is one required input line of a blueprint.
//
// Target meaning by kind: FixedAtom = atom ledger identity, FixedItem =
// fungible item identity, UniqueItem = required originating item type
// (zero accepts any), VariableAtom = unused.
type Component struct {
	Kind     ComponentKind        `json:"kind"`
	Target   *uint256.Int         `json:"target,omitempty"`
	Amount   uint64               `json:"amount"`
	Criteria []criteria.Criterion `json:"criteria,omitempty"`
}

// ItemType is a publisher-authored template. The identity is assigned
// at creation and never reused; everything else stays editable by the
// admin until the type is frozen.
type ItemType struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Admin       string `json:"admin,omitempty"`
	Kind        Kind   `json:"kind"`

	Components    []Component   `json:"components,omitempty"`
	MutatorID     string        `json:"mutator,omitempty"`
	Cost          *uint256.Int  `json:"cost,omitempty"`
	FeeRecipient  string        `json:"feeRecipient,omitempty"`
	DefaultTraits []trait.Entry `json:"defaultTraits,omitempty"`

	// TierImages are the seven default image references for unique
	// items, indexed by tier-1. Tier 0 renders no image.
	TierImages [7]string `json:"tierImages,omitempty"`

	Frozen bool `json:"frozen,omitempty"`
}

// Validate checks the definition structurally. It is called on create
// and update, before anything is persisted.
func (it *ItemType) Validate() error {
	if it == nil {
		return ErrNilItemType
	}
	if it.Name == "" {
		return ErrEmptyName
	}
	switch it.Kind {
	case Fungible, Unique:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, it.Kind)
	}
	if it.Cost != nil && !it.Cost.IsZero() && it.FeeRecipient == "" {
		return ErrNoFeeRecipient
	}

	for i, c := range it.Components {
		if err := it.validateComponent(i, c); err != nil {
			return err
		}
	}

	if err := trait.ValidateDefaults(it.DefaultTraits); err != nil {
		return err
	}
	return nil
}

func (it *ItemType) validateComponent(i int, c Component) error {
	if c.Amount == 0 {
		return fmt.Errorf("%w: component %d", ErrZeroAmount, i)
	}
	if err := criteria.ValidateAll(c.Criteria); err != nil {
		return fmt.Errorf("component %d: %w", i, err)
	}

	switch c.Kind {
	case FixedAtom, FixedItem:
		if c.Target == nil || c.Target.IsZero() {
			return fmt.Errorf("%w: component %d", ErrMissingTarget, i)
		}
		return nil

	case VariableAtom, UniqueItem:
		if it.Kind == Fungible {
			return fmt.Errorf("%w: component %d is %s", ErrComponentForbidden, i, c.Kind)
		}
		if c.Amount != 1 {
			return fmt.Errorf("%w: component %d requires amount 1", ErrInstanceAmount, i)
		}
		return nil

	default:
		return fmt.Errorf("%w: component %d kind %q", ErrUnknownComponent, i, c.Kind)
	}
}

// InstanceSlots counts the variable-atom and unique-item slots one
// craft unit consumes. Craft requests must supply exactly these many
// instance identifiers per unit.
func (it *ItemType) InstanceSlots() (variable, unique int) {
	for _, c := range it.Components {
		switch c.Kind {
		case VariableAtom:
			variable += int(c.Amount)
		case UniqueItem:
			unique += int(c.Amount)
		}
	}
	return variable, unique
}

// ImageForTier returns the default image reference for a tier. Tier 0
// is untiered and has no image.
func (it *ItemType) ImageForTier(tier uint8) string {
	if tier < 1 || tier > 7 {
		return ""
	}
	return it.TierImages[tier-1]
}

// CostAmount returns the cost, treating nil as zero.
func (it *ItemType) CostAmount() *uint256.Int {
	if it.Cost == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(it.Cost)
}

// Clone deep-copies the definition.
func (it *ItemType) Clone() *ItemType {
	if it == nil {
		return nil
	}
	out := *it
	if it.Cost != nil {
		out.Cost = new(uint256.Int).Set(it.Cost)
	}
	out.Components = cloneComponents(it.Components)
	out.DefaultTraits = trait.CloneEntries(it.DefaultTraits)
	return &out
}

func cloneComponents(comps []Component) []Component {
	if comps == nil {
		return nil
	}
	out := make([]Component, len(comps))
	for i, c := range comps {
		out[i] = c
		if c.Target != nil {
			out[i].Target = new(uint256.Int).Set(c.Target)
		}
		out[i].Criteria = criteria.CloneList(c.Criteria)
	}
	return out
}
