package server

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// Identities on the wire follow the journal convention: unique tokens
// as 0x-prefixed hex, fungible identities as decimal.

func parseID(s string) (*uint256.Int, error) {
	id, err := token.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("identity %q: %w", s, err)
	}
	return id, nil
}

func formatID(id *uint256.Int) string {
	return token.Format(id)
}

func parseIDs(in []string) ([]*uint256.Int, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*uint256.Int, len(in))
	for i, s := range in {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

type createItemRequest struct {
	Caller string              `json:"caller"`
	Item   *blueprint.ItemType `json:"item"`
}

type createItemResponse struct {
	ID  uint64 `json:"id"`
	CID string `json:"cid"`
}

type registerAtomRequest struct {
	Caller string   `json:"caller"`
	Atom   *atomDef `json:"atom"`
}

// atomDef mirrors atom.Def for decoding; props arrive as entry lists.
type atomDef struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Props []trait.Entry `json:"props,omitempty"`
}

type atomView struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Props []trait.Entry `json:"props,omitempty"`
}

func atomViewFrom(def *atom.Def) atomView {
	return atomView{
		ID:    token.Format(def.ID),
		Name:  def.Name,
		Props: def.Props.All(),
	}
}

type atomPropsRequest struct {
	Caller string        `json:"caller"`
	Props  []trait.Entry `json:"props"`
}

type mintRequest struct {
	Caller string       `json:"caller"`
	Owner  string       `json:"owner"`
	ID     string       `json:"id"`
	Amount *uint256.Int `json:"amount"`
}

type creationRequest struct {
	Caller  string `json:"caller"`
	Enabled bool   `json:"enabled"`
}

type creationResponse struct {
	Enabled bool `json:"enabled"`
}

type adminRequest struct {
	Caller   string `json:"caller"`
	NewAdmin string `json:"newAdmin"`
}

type craftRequest struct {
	Caller   string          `json:"caller"`
	ItemID   uint64          `json:"itemId"`
	Amount   uint64          `json:"amount"`
	Variable []string        `json:"variable,omitempty"`
	Unique   []string        `json:"unique,omitempty"`
	Aux      json.RawMessage `json:"aux,omitempty"`
}

type craftResponse struct {
	ItemID     uint64        `json:"itemId"`
	Kind       string        `json:"kind"`
	TokenID    string        `json:"tokenId"`
	Serial     uint64        `json:"serial,omitempty"`
	Tier       uint8         `json:"tier"`
	Traits     []trait.Entry `json:"traits,omitempty"`
	Inputs     []token.Input `json:"inputs,omitempty"`
	Commitment string        `json:"commitment,omitempty"`
	Free       bool          `json:"free,omitempty"`
}

func craftResponseFrom(res *forge.CraftResult) craftResponse {
	return craftResponse{
		ItemID:     res.ItemID,
		Kind:       string(res.Kind),
		TokenID:    token.Format(res.TokenID),
		Serial:     res.Serial,
		Tier:       res.Tier,
		Traits:     res.Traits,
		Inputs:     res.Inputs,
		Commitment: res.Commitment,
		Free:       res.Free,
	}
}

type useRequest struct {
	Caller  string          `json:"caller"`
	TokenID string          `json:"tokenId"`
	Aux     json.RawMessage `json:"aux,omitempty"`
}

type useResponse struct {
	TokenID   string        `json:"tokenId"`
	Tier      uint8         `json:"tier"`
	Traits    []trait.Entry `json:"traits,omitempty"`
	Destroyed bool          `json:"destroyed,omitempty"`
}

func useResponseFrom(out *forge.UseOutcome) useResponse {
	return useResponse{
		TokenID:   token.Format(out.TokenID),
		Tier:      out.Tier,
		Traits:    out.Traits,
		Destroyed: out.Destroyed,
	}
}

type consumeRequest struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner"`
	ItemID uint64 `json:"itemId"`
	Amount uint64 `json:"amount"`
}

type transferRequest struct {
	Caller string       `json:"caller"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	ID     string       `json:"id"`
	Amount *uint256.Int `json:"amount,omitempty"`
}

// approvalRequest covers all three grant layers, selected by scope:
// "all", "item", or "token".
type approvalRequest struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	Scope    string `json:"scope"`
	ItemID   uint64 `json:"itemId,omitempty"`
	TokenID  string `json:"tokenId,omitempty"`
	Approved bool   `json:"approved"`
}

type balanceResponse struct {
	Owner   string `json:"owner"`
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

type ownedTokensResponse struct {
	Owner  string   `json:"owner"`
	Tokens []string `json:"tokens"`
}

type apiError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
