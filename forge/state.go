package forge

import (
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// tokenState is the engine-side record of one unique token. It is
// created at mint and kept after destruction so history reads keep
// resolving; Destroyed marks the terminal state.
type tokenState struct {
	ID         *uint256.Int
	ItemType   uint64
	Serial     uint64
	Tier       uint8
	Traits     *trait.Set
	Inputs     []token.Input
	Commitment string
	Destroyed  bool
}

// TokenInfo is the assembled read model of a unique token: engine
// state plus the display fields derived from the item type. Name,
// Description, Image, and Tier are the reserved display values; they
// come from item metadata and tier state, never from the trait set.
type TokenInfo struct {
	ID          string        `json:"id"`
	ItemType    uint64        `json:"itemType"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Serial      uint64        `json:"serial"`
	Tier        uint8         `json:"tier"`
	Image       string        `json:"image,omitempty"`
	Traits      []trait.Entry `json:"traits,omitempty"`
	Inputs      []token.Input `json:"inputs,omitempty"`
	Commitment  string        `json:"commitment,omitempty"`
	Owner       string        `json:"owner,omitempty"`
	Destroyed   bool          `json:"destroyed,omitempty"`
}

// info assembles the read model with the engine lock held.
func (s *tokenState) info(it *blueprint.ItemType, owner string) *TokenInfo {
	return &TokenInfo{
		ID:          token.Format(s.ID),
		ItemType:    s.ItemType,
		Name:        it.Name,
		Description: it.Description,
		Serial:      s.Serial,
		Tier:        s.Tier,
		Image:       it.ImageForTier(s.Tier),
		Traits:      trait.CloneEntries(s.Traits.All()),
		Inputs:      token.CloneInputs(s.Inputs),
		Commitment:  s.Commitment,
		Owner:       owner,
		Destroyed:   s.Destroyed,
	}
}
