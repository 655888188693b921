package journal

import "github.com/pflow-xyz/go-forge/token"

// Payload shapes for the journal event types. The engine marshals
// these into Event.Data; readers pick the struct matching Event.Type.

type ItemCreatedData struct {
	ItemID  uint64 `json:"itemId"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	CID     string `json:"cid"`
	Creator string `json:"creator"`
}

type ItemUpdatedData struct {
	ItemID uint64 `json:"itemId"`
	CID    string `json:"cid"`
}

type ItemFrozenData struct {
	ItemID uint64 `json:"itemId"`
}

type ItemAdminData struct {
	ItemID   uint64 `json:"itemId"`
	NewAdmin string `json:"newAdmin"`
}

// CraftData records one successful craft. TokenID is the minted unique
// token when the item type is unique, otherwise the fungible item id.
// Inputs is the actual blueprint: the concrete resources consumed.
type CraftData struct {
	ItemID     uint64        `json:"itemId"`
	Crafter    string        `json:"crafter"`
	Amount     uint64        `json:"amount"`
	TokenID    string        `json:"tokenId"`
	Serial     uint64        `json:"serial,omitempty"`
	Tier       uint8         `json:"tier"`
	Commitment string        `json:"commitment,omitempty"`
	Inputs     []token.Input `json:"inputs,omitempty"`
	Free       bool          `json:"free,omitempty"`
}

type UseData struct {
	TokenID   string `json:"tokenId"`
	Owner     string `json:"owner"`
	Caller    string `json:"caller,omitempty"`
	Destroyed bool   `json:"destroyed,omitempty"`
}

type ConsumeData struct {
	TokenID string `json:"tokenId"`
	Owner   string `json:"owner"`
	Caller  string `json:"caller,omitempty"`
	Amount  uint64 `json:"amount"`
}

type TransferData struct {
	TokenID string `json:"tokenId"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

// ApprovalData covers the approval layers. Scope is "item", "token",
// or "all"; Target is the item id or formatted token id, empty for
// the global grant.
type ApprovalData struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
	Scope    string `json:"scope"`
	Target   string `json:"target,omitempty"`
	Approved bool   `json:"approved"`
}

type AtomData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ResourceMintData struct {
	TokenID string `json:"tokenId"`
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
}

type CreationToggleData struct {
	Enabled bool `json:"enabled"`
}
