// Package trait stores typed name/value pairs attached to atoms and
// crafted items. Names are addressed by a collision-resistant key so
// lookups stay stable across renames of the display layer.
package trait

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Kind discriminates trait value types.
type Kind string

const (
	Number Kind = "number"
	String Kind = "string"
)

// Value is a typed trait value. Exactly one payload field is set,
// selected by Kind.
type Value struct {
	Kind Kind         `json:"kind"`
	Num  *uint256.Int `json:"num,omitempty"`
	Str  string       `json:"str,omitempty"`
}

// Num returns a numeric value.
func Num(v uint64) Value {
	return Value{Kind: Number, Num: uint256.NewInt(v)}
}

// Big returns a numeric value from a full-width integer.
func Big(v *uint256.Int) Value {
	return Value{Kind: Number, Num: new(uint256.Int).Set(v)}
}

// Str returns a string value.
func Str(s string) Value {
	return Value{Kind: String, Str: s}
}

// IsZero reports whether v is the zero Value (no kind set).
func (v Value) IsZero() bool {
	return v.Kind == ""
}

// Clone returns a copy sharing no storage with the receiver.
func (v Value) Clone() Value {
	if v.Num != nil {
		v.Num = new(uint256.Int).Set(v.Num)
	}
	return v
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Number:
		if v.Num == nil || other.Num == nil {
			return v.Num == other.Num
		}
		return v.Num.Eq(other.Num)
	case String:
		return v.Str == other.Str
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case Number:
		if v.Num == nil {
			return "0"
		}
		return v.Num.Dec()
	case String:
		return v.Str
	default:
		return ""
	}
}

// Validate checks that the value is well formed.
func (v Value) Validate() error {
	switch v.Kind {
	case Number:
		if v.Num == nil {
			return fmt.Errorf("%w: number value missing payload", ErrInvalidValue)
		}
		return nil
	case String:
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidValue, v.Kind)
	}
}

// Reserved display names. The rendering layer derives these four from
// item-type metadata and tier state, so publisher defaults may not
// shadow them.
var reservedNames = map[string]bool{
	"name":        true,
	"description": true,
	"image":       true,
	"tier":        true,
}

// Reserved reports whether name is claimed by the rendering layer.
func Reserved(name string) bool {
	return reservedNames[name]
}

// Key computes the storage key for a trait name.
func Key(name string) string {
	hash := sha256.Sum256([]byte(name))
	return "tk:" + hex.EncodeToString(hash[:])
}

// Entry is a named trait.
type Entry struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// CloneEntries deep-copies an entry list.
func CloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Name: e.Name, Value: e.Value.Clone()}
	}
	return out
}

// Set is an insertion-ordered collection of traits keyed by Key(name).
// The zero value is not usable; call NewSet.
type Set struct {
	order []string
	items map[string]Entry
}

// NewSet returns an empty trait set.
func NewSet() *Set {
	return &Set{items: make(map[string]Entry)}
}

// FromEntries builds a set from entries in order. Later duplicates
// overwrite earlier ones without changing position.
func FromEntries(entries []Entry) *Set {
	s := NewSet()
	for _, e := range entries {
		s.Upsert(e.Name, e.Value)
	}
	return s
}

// Len returns the number of traits in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Get returns the value stored under name.
func (s *Set) Get(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	e, ok := s.items[Key(name)]
	return e.Value, ok
}

// Property implements the criteria property reader over this set.
func (s *Set) Property(name string) (Value, bool) {
	return s.Get(name)
}

// Has reports whether name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Upsert stores value under name, keeping the original insertion
// position on replace.
func (s *Set) Upsert(name string, v Value) {
	key := Key(name)
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = Entry{Name: name, Value: v}
}

// ReplaceAll discards the current contents and installs entries in
// order.
func (s *Set) ReplaceAll(entries []Entry) {
	s.order = s.order[:0]
	s.items = make(map[string]Entry, len(entries))
	for _, e := range entries {
		s.Upsert(e.Name, e.Value)
	}
}

// All returns the entries in insertion order.
func (s *Set) All() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// Names returns the trait names in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key].Name)
	}
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	out := &Set{
		order: append([]string(nil), s.order...),
		items: make(map[string]Entry, len(s.items)),
	}
	for key, e := range s.items {
		out.items[key] = Entry{Name: e.Name, Value: e.Value.Clone()}
	}
	return out
}

// MarshalJSON renders the set as its insertion-ordered entry list.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}

// UnmarshalJSON rebuilds the set from an entry list.
func (s *Set) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.ReplaceAll(entries)
	return nil
}

// ValidateDefaults checks publisher-supplied default traits: names must
// be non-empty, unique, not reserved, and values well formed.
func ValidateDefaults(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return ErrEmptyName
		}
		if Reserved(e.Name) {
			return fmt.Errorf("%w: %q", ErrReservedName, e.Name)
		}
		key := Key(e.Name)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		seen[key] = true
		if err := e.Value.Validate(); err != nil {
			return fmt.Errorf("trait %q: %w", e.Name, err)
		}
	}
	return nil
}
