package token

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
)

func TestFungibleNamespace(t *testing.T) {
	id := Fungible(42)
	if id.Uint64() != 42 {
		t.Errorf("Expected 42, got %s", id.Dec())
	}
	if IsUnique(id) {
		t.Error("Fungible identity should not be in the unique namespace")
	}
}

func TestUniqueNamespace(t *testing.T) {
	id := Unique(1, 1)
	if !IsUnique(id) {
		t.Error("Derived identity should be in the unique namespace")
	}
}

func TestUniqueDeterminism(t *testing.T) {
	a := Unique(7, 3)
	b := Unique(7, 3)
	if !a.Eq(b) {
		t.Error("Derivation should be deterministic")
	}
}

func TestUniqueNoCollisions(t *testing.T) {
	seen := make(map[uint256.Int]bool)
	for itemID := uint64(1); itemID <= 20; itemID++ {
		for serial := uint64(1); serial <= 20; serial++ {
			id := Unique(itemID, serial)
			if seen[*id] {
				t.Fatalf("Collision at item %d serial %d", itemID, serial)
			}
			seen[*id] = true
			if !IsUnique(id) {
				t.Fatalf("Identity for item %d serial %d escaped the unique namespace", itemID, serial)
			}
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	cases := []*uint256.Int{
		Fungible(0),
		Fungible(1),
		Fungible(999999),
		Unique(1, 1),
		Unique(42, 7),
	}
	for _, id := range cases {
		s := Format(id)
		parsed, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		if !parsed.Eq(id) {
			t.Errorf("Round trip changed %s to %s", id.Hex(), parsed.Hex())
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "0xzz", "12x4", "-5"} {
		if _, err := Parse(s); !errors.Is(err, ErrMalformedID) {
			t.Errorf("Parse(%q) should fail with ErrMalformedID, got %v", s, err)
		}
	}
}

func TestCommitmentDeterminism(t *testing.T) {
	inputs := []Input{
		{ID: Fungible(3), Amount: 2},
		{ID: Unique(5, 1), Amount: 1},
	}
	a := Commitment(9, 1, "alice", inputs)
	b := Commitment(9, 1, "alice", inputs)
	if a != b {
		t.Error("Commitment should be deterministic")
	}
	if !strings.HasPrefix(a, "mimc:") {
		t.Errorf("Commitment should carry the mimc prefix, got %q", a)
	}
}

func TestCommitmentSensitivity(t *testing.T) {
	inputs := []Input{{ID: Fungible(3), Amount: 2}}
	base := Commitment(9, 1, "alice", inputs)

	if Commitment(9, 2, "alice", inputs) == base {
		t.Error("Serial change should change the commitment")
	}
	if Commitment(8, 1, "alice", inputs) == base {
		t.Error("Item change should change the commitment")
	}
	if Commitment(9, 1, "bob", inputs) == base {
		t.Error("Crafter change should change the commitment")
	}
	if Commitment(9, 1, "alice", []Input{{ID: Fungible(3), Amount: 3}}) == base {
		t.Error("Amount change should change the commitment")
	}
}

func TestInputJSON(t *testing.T) {
	inputs := []Input{
		{ID: Fungible(1001), Amount: 2},
		{ID: Unique(5, 1), Amount: 1},
	}
	b, err := json.Marshal(inputs)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(b), `"id":"1001"`) {
		t.Errorf("Expected decimal fungible id on the wire, got %s", b)
	}
	if !strings.Contains(string(b), `"id":"0x`) {
		t.Errorf("Expected hex unique id on the wire, got %s", b)
	}

	var back []Input
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(back) != 2 || !back[0].ID.Eq(inputs[0].ID) || !back[1].ID.Eq(inputs[1].ID) {
		t.Errorf("Round trip changed the inputs: %+v", back)
	}
	if back[0].Amount != 2 || back[1].Amount != 1 {
		t.Errorf("Round trip changed the amounts: %+v", back)
	}
}

func TestCloneInputs(t *testing.T) {
	src := []Input{{ID: Fungible(3), Amount: 2}}
	dst := CloneInputs(src)
	dst[0].ID.SetUint64(99)
	dst[0].Amount = 1

	if src[0].ID.Uint64() != 3 || src[0].Amount != 2 {
		t.Error("Clone should not share storage with the source")
	}
	if CloneInputs(nil) != nil {
		t.Error("Nil input should clone to nil")
	}
}

func TestSerialSeedStability(t *testing.T) {
	if SerialSeed(1, 2, "alice") != SerialSeed(1, 2, "alice") {
		t.Error("Seed should be deterministic")
	}
	if SerialSeed(1, 2, "alice") == SerialSeed(1, 3, "alice") {
		t.Error("Seed should vary with serial")
	}
}
