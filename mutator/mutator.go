// Package mutator is the extension boundary of the crafting core. A
// mutator is publisher-chosen, untrusted code that steers tier
// computation, craft admission, item use, and transfers of one item
// type. The core talks to modules only through the Mutator interface;
// the Guard wrapper and the script host keep module failures contained
// to the single operation that triggered them.
package mutator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/trait"
)

// Instance is a resolved resource handed to a module: the identity the
// crafter supplied plus the property sheet it resolves to. Unique
// items also carry their originating item type and current tier.
type Instance struct {
	ID       *uint256.Int  `json:"id"`
	ItemType uint64        `json:"itemType,omitempty"`
	Tier     uint8         `json:"tier,omitempty"`
	Props    []trait.Entry `json:"props,omitempty"`
}

// TierRequest carries everything a tier computation may read.
type TierRequest struct {
	ItemID      uint64        `json:"itemId"`
	Variable    []Instance    `json:"variable,omitempty"`
	UniqueItems []Instance    `json:"uniqueItems,omitempty"`
	BaseTraits  []trait.Entry `json:"baseTraits,omitempty"`
	Payment     *uint256.Int  `json:"payment,omitempty"`
	// Seed is deterministic per craft, for modules that want
	// reproducible variation without a clock or entropy source.
	Seed uint64 `json:"seed"`
}

// TierResult is the module's verdict: a tier and the full replacement
// trait set. Tiers above 7 are rejected by the core at commit time.
type TierResult struct {
	Tier   uint8         `json:"tier"`
	Traits []trait.Entry `json:"traits,omitempty"`
}

// CraftRequest is the admission check input.
type CraftRequest struct {
	Crafter     string          `json:"crafter"`
	ItemID      uint64          `json:"itemId"`
	Amount      uint64          `json:"amount"`
	Variable    []Instance      `json:"variable,omitempty"`
	UniqueItems []Instance      `json:"uniqueItems,omitempty"`
	Aux         json.RawMessage `json:"aux,omitempty"`
}

// CraftResult admits or vetoes a craft. RequiresResources=false waives
// component validation and consumption entirely, enabling free or
// externally gated crafts.
type CraftResult struct {
	Allowed           bool `json:"allowed"`
	RequiresResources bool `json:"requiresResources"`
}

// UseRequest describes one use call on a unique token.
type UseRequest struct {
	TokenID       *uint256.Int    `json:"tokenId"`
	ItemID        uint64          `json:"itemId"`
	Owner         string          `json:"owner"`
	Tier          uint8           `json:"tier"`
	CurrentTraits []trait.Entry   `json:"currentTraits,omitempty"`
	Aux           json.RawMessage `json:"aux,omitempty"`
}

// UseResult updates traits incrementally: returned names are upserted,
// omitted names survive. Destroy burns the token after the update.
type UseResult struct {
	Traits  []trait.Entry `json:"traits,omitempty"`
	Destroy bool          `json:"destroy"`
}

// TransferRequest describes a pending transfer of a unique token.
type TransferRequest struct {
	TokenID       *uint256.Int  `json:"tokenId"`
	ItemID        uint64        `json:"itemId"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	Amount        *uint256.Int  `json:"amount,omitempty"`
	CurrentTraits []trait.Entry `json:"currentTraits,omitempty"`
}

// Mutator is the capability interface a module implements. Every call
// is synchronous and scoped to one core operation.
//
// CalculateTier must be side-effect-free; the core treats its failure
// as survivable and falls back to default traits at tier 0. OnCraft,
// OnItemUse, and OnTransfer failures abort the triggering operation.
type Mutator interface {
	CalculateTier(ctx context.Context, req TierRequest) (TierResult, error)
	OnCraft(ctx context.Context, req CraftRequest) (CraftResult, error)
	OnItemUse(ctx context.Context, req UseRequest) (UseResult, error)
	OnTransfer(ctx context.Context, req TransferRequest) (bool, error)
}

// Registry maps module ids to implementations. Registration replaces:
// module code is operator-managed and may be upgraded in place.
type Registry struct {
	mu   sync.RWMutex
	mods map[string]Mutator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mods: make(map[string]Mutator)}
}

// Register installs a module under id.
func (r *Registry) Register(id string, m Mutator) error {
	if id == "" {
		return ErrEmptyID
	}
	if m == nil {
		return ErrNilMutator
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods[id] = m
	return nil
}

// Get returns the module registered under id.
func (r *Registry) Get(id string) (Mutator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mods[id]
	return m, ok
}

// IDs lists registered module ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.mods))
	for id := range r.mods {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
