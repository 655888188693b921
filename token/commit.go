package token

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/holiman/uint256"
)

// Commitment computes a MiMC digest binding a crafted token to its
// provenance: the item type, mint serial, crafter, and the ordered
// inputs actually consumed. The digest lives in the BN254 scalar
// field, so the same record can later be opened inside an arithmetic
// circuit without re-hashing outside the field.
func Commitment(itemID, serial uint64, crafter string, inputs []Input) string {
	h := mimc.NewMiMC()

	writeUint(h, itemID)
	writeUint(h, serial)
	writeBytes(h, []byte(crafter))
	for _, in := range inputs {
		writeU256(h, in.ID)
		writeUint(h, in.Amount)
	}

	return "mimc:" + hex.EncodeToString(h.Sum(nil))
}

// writeUint absorbs a uint64 as a field element.
func writeUint(h hash.Hash, v uint64) {
	var e fr.Element
	e.SetUint64(v)
	h.Write(e.Marshal())
}

// writeU256 absorbs a 256-bit identity. Identities can exceed the
// field modulus, so the value is reduced on the way in.
func writeU256(h hash.Hash, v *uint256.Int) {
	var buf [32]byte
	if v != nil {
		buf = v.Bytes32()
	}
	var e fr.Element
	e.SetBytes(buf[:])
	h.Write(e.Marshal())
}

// writeBytes absorbs arbitrary bytes by hashing them down to one
// element first.
func writeBytes(h hash.Hash, b []byte) {
	sum := sha256.Sum256(b)
	var e fr.Element
	e.SetBytes(sum[:])
	h.Write(e.Marshal())
}

// SerialSeed derives a deterministic per-craft seed handed to tier
// mutators that want reproducible randomness without access to a
// clock or external entropy.
func SerialSeed(itemID, serial uint64, crafter string) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], itemID)
	binary.BigEndian.PutUint64(buf[8:16], serial)
	sum := sha256.Sum256(append(buf[:], crafter...))
	return binary.BigEndian.Uint64(sum[:8])
}
