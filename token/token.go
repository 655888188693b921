// Package token defines the identity scheme for crafted tokens.
//
// Fungible tokens reuse their item-type identity directly, a small
// bounded namespace. Unique tokens get an identity derived by hashing
// (item type, mint serial) with bit 255 forced, so the two namespaces
// can never collide and an identity alone reveals which family it
// belongs to.
package token

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var ErrMalformedID = errors.New("token: malformed token id")

// uniqueBit marks the unique-token namespace.
var uniqueBit = new(uint256.Int).Lsh(uint256.NewInt(1), 255)

// Fungible returns the ledger identity for a fungible item type.
func Fungible(itemID uint64) *uint256.Int {
	return uint256.NewInt(itemID)
}

// Unique derives the ledger identity of the serial-th token minted for
// an item type. The derivation is deterministic and collision
// resistant; distinct (itemID, serial) pairs never map to the same
// identity, and the result never lands in the fungible namespace.
func Unique(itemID, serial uint64) *uint256.Int {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], itemID)
	binary.BigEndian.PutUint64(buf[8:16], serial)
	sum := sha256.Sum256(buf[:])

	id := new(uint256.Int).SetBytes(sum[:])
	return id.Or(id, uniqueBit)
}

// IsUnique reports whether id lies in the unique-token namespace.
func IsUnique(id *uint256.Int) bool {
	return !new(uint256.Int).And(id, uniqueBit).IsZero()
}

// Format renders an identity for APIs and logs. Fungible identities
// print as decimal, unique ones as 0x hex.
func Format(id *uint256.Int) string {
	if IsUnique(id) {
		return id.Hex()
	}
	return id.Dec()
}

// Parse reads an identity in either Format rendering.
func Parse(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedID)
	}
	id := new(uint256.Int)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if err := id.SetFromHex(s); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedID, s)
		}
		return id, nil
	}
	if err := id.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedID, s)
	}
	return id, nil
}

// Input is one consumed resource of a craft: the identity that was
// burned (or paid) and how much. The ordered input list is the actual
// blueprint of a unique token, recorded permanently for display and
// audit.
type Input struct {
	ID     *uint256.Int `json:"id"`
	Amount uint64       `json:"amount"`
}

type inputJSON struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
}

// MarshalJSON renders the identity through Format: unique ids cross
// the wire as 0x hex, fungible ids as decimal.
func (in Input) MarshalJSON() ([]byte, error) {
	id := "0"
	if in.ID != nil {
		id = Format(in.ID)
	}
	return json.Marshal(inputJSON{ID: id, Amount: in.Amount})
}

// UnmarshalJSON accepts either Format rendering.
func (in *Input) UnmarshalJSON(data []byte) error {
	var raw inputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := Parse(raw.ID)
	if err != nil {
		return err
	}
	in.ID = id
	in.Amount = raw.Amount
	return nil
}

// CloneInputs deep-copies an actual blueprint.
func CloneInputs(inputs []Input) []Input {
	if inputs == nil {
		return nil
	}
	out := make([]Input, len(inputs))
	for i, in := range inputs {
		out[i] = Input{ID: new(uint256.Int).Set(in.ID), Amount: in.Amount}
	}
	return out
}
