package blueprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/trait"
)

// CID computes the content-addressed identifier of the definition.
// Any change to the crafting-relevant structure changes the CID;
// identity and administrative fields (ID, Creator, Admin, Frozen) do
// not participate, so the same recipe published twice hashes the same.
func (it *ItemType) CID() string {
	structural := struct {
		Name          string        `json:"name"`
		Description   string        `json:"description"`
		Kind          Kind          `json:"kind"`
		Components    []Component   `json:"components"`
		MutatorID     string        `json:"mutator"`
		Cost          *uint256.Int  `json:"cost"`
		FeeRecipient  string        `json:"feeRecipient"`
		DefaultTraits []trait.Entry `json:"defaultTraits"`
		TierImages    [7]string     `json:"tierImages"`
	}{
		Name:          it.Name,
		Description:   it.Description,
		Kind:          it.Kind,
		Components:    it.Components,
		MutatorID:     it.MutatorID,
		Cost:          it.CostAmount(),
		FeeRecipient:  it.FeeRecipient,
		DefaultTraits: it.DefaultTraits,
		TierImages:    it.TierImages,
	}

	data, err := json.Marshal(structural)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return "cid:" + hex.EncodeToString(hash[:])
}

// Equal reports whether two definitions have the same CID.
func (it *ItemType) Equal(other *ItemType) bool {
	if other == nil {
		return false
	}
	return it.CID() == other.CID()
}
