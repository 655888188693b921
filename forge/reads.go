package forge

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/tracking"
	"github.com/pflow-xyz/go-forge/trait"
)

// Item returns a copy of an item type definition.
func (e *Engine) Item(id uint64) (*blueprint.ItemType, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	it, ok := e.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// Items returns copies of every item type, ordered by identity.
func (e *Engine) Items() []*blueprint.ItemType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*blueprint.ItemType, 0, len(e.items))
	for _, it := range e.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemCID returns the content identifier of an item type definition.
func (e *Engine) ItemCID(id uint64) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	it, ok := e.items[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return it.CID(), nil
}

// Token assembles the read model of a unique token. Destroyed tokens
// still resolve; their Owner is empty and Destroyed is set.
func (e *Engine) Token(id *uint256.Int) (*TokenInfo, error) {
	if id == nil || !token.IsUnique(id) {
		return nil, ErrNotUnique
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.tokens[*id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, token.Format(id))
	}
	owner, _ := e.index.OwnerOf(id)
	return st.info(e.items[st.ItemType], owner), nil
}

// TierOf returns the current tier of a unique token.
func (e *Engine) TierOf(id *uint256.Int) (uint8, error) {
	info, err := e.Token(id)
	if err != nil {
		return 0, err
	}
	return info.Tier, nil
}

// TraitsOf returns the current trait entries of a unique token.
func (e *Engine) TraitsOf(id *uint256.Int) ([]trait.Entry, error) {
	info, err := e.Token(id)
	if err != nil {
		return nil, err
	}
	return info.Traits, nil
}

// ImageOf resolves a unique token's image reference from its tier and
// the item type's tier images. Untiered tokens have no image.
func (e *Engine) ImageOf(id *uint256.Int) (string, error) {
	info, err := e.Token(id)
	if err != nil {
		return "", err
	}
	return info.Image, nil
}

// CommitmentOf returns the provenance commitment of a unique token.
func (e *Engine) CommitmentOf(id *uint256.Int) (string, error) {
	info, err := e.Token(id)
	if err != nil {
		return "", err
	}
	return info.Commitment, nil
}

// ActualBlueprint returns the concrete inputs a unique token was
// crafted from.
func (e *Engine) ActualBlueprint(id *uint256.Int) ([]token.Input, error) {
	info, err := e.Token(id)
	if err != nil {
		return nil, err
	}
	return info.Inputs, nil
}

// OwnerOf returns the current holder of a live unique token.
func (e *Engine) OwnerOf(id *uint256.Int) (string, bool) {
	return e.index.OwnerOf(id)
}

// TokensOf lists the unique tokens an owner currently holds.
func (e *Engine) TokensOf(owner string) []*uint256.Int {
	return e.index.TokensOf(owner)
}

// Stats returns lifetime craft counters for an item type.
func (e *Engine) Stats(itemID uint64) tracking.Stats {
	return e.index.StatsFor(itemID)
}

// BalanceOf returns an owner's ledger balance of any identity.
func (e *Engine) BalanceOf(owner string, id *uint256.Int) *uint256.Int {
	return e.ledger.BalanceOf(owner, id)
}
