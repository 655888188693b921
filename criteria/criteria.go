// Package criteria evaluates property constraints against candidate
// resources. Evaluation is pure: a criterion list and a property reader
// go in, a verdict comes out, nothing is mutated.
package criteria

import (
	"crypto/sha256"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/trait"
)

// Mode selects which comparison a criterion performs.
type Mode string

const (
	// Range checks a numeric property against optional min/max bounds.
	Range Mode = "range"
	// BoolEq checks the truthiness of a numeric property. Zero is
	// false, anything else is true (Solidity semantics).
	BoolEq Mode = "bool-eq"
	// StringEq checks a string property by content hash.
	StringEq Mode = "string-eq"
	// ValueEq checks for an exact typed value.
	ValueEq Mode = "value-eq"
)

// Criterion is a single constraint on one property of a candidate.
// The payload fields are selected by Mode.
type Criterion struct {
	Property string `json:"property"`
	Mode     Mode   `json:"mode"`

	Min   *uint256.Int `json:"min,omitempty"`  // Range; nil = unbounded
	Max   *uint256.Int `json:"max,omitempty"`  // Range; nil = unbounded
	Bool  bool         `json:"bool,omitempty"` // BoolEq
	Str   string       `json:"str,omitempty"`  // StringEq
	Value trait.Value  `json:"value,omitzero"` // ValueEq
}

// PropertyReader exposes the candidate's properties. Missing
// properties disqualify; there is no default value.
type PropertyReader interface {
	Property(name string) (trait.Value, bool)
}

// Validate checks the criterion definition itself, independent of any
// candidate.
func (c Criterion) Validate() error {
	if c.Property == "" {
		return ErrEmptyProperty
	}
	switch c.Mode {
	case Range:
		if c.Min != nil && c.Max != nil && c.Min.Gt(c.Max) {
			return fmt.Errorf("%w: %q min %s > max %s", ErrInvalidRange, c.Property, c.Min.Dec(), c.Max.Dec())
		}
		return nil
	case BoolEq, StringEq:
		return nil
	case ValueEq:
		if err := c.Value.Validate(); err != nil {
			return fmt.Errorf("criteria: %q: %w", c.Property, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
}

// ValidateAll validates every criterion in the list.
func ValidateAll(criteria []Criterion) error {
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CloneList deep-copies a criteria list, including the bound values.
func CloneList(criteria []Criterion) []Criterion {
	if criteria == nil {
		return nil
	}
	out := make([]Criterion, len(criteria))
	for i, c := range criteria {
		out[i] = c
		if c.Min != nil {
			out[i].Min = new(uint256.Int).Set(c.Min)
		}
		if c.Max != nil {
			out[i].Max = new(uint256.Int).Set(c.Max)
		}
		out[i].Value = c.Value.Clone()
	}
	return out
}

// Check evaluates criteria conjunctively against the candidate and
// returns nil when all pass. Any failing criterion disqualifies; the
// returned error wraps ErrNotMet and names the first failure. An empty
// list accepts any candidate.
func Check(candidate PropertyReader, criteria []Criterion) error {
	for _, c := range criteria {
		if err := c.check(candidate); err != nil {
			return err
		}
	}
	return nil
}

// Meets reports whether the candidate satisfies every criterion.
func Meets(candidate PropertyReader, criteria []Criterion) bool {
	return Check(candidate, criteria) == nil
}

func (c Criterion) check(candidate PropertyReader) error {
	v, ok := candidate.Property(c.Property)
	if !ok {
		return fmt.Errorf("%w: property %q not present", ErrNotMet, c.Property)
	}

	switch c.Mode {
	case Range:
		if v.Kind != trait.Number {
			return fmt.Errorf("%w: property %q is not numeric", ErrNotMet, c.Property)
		}
		if c.Min != nil && v.Num.Lt(c.Min) {
			return fmt.Errorf("%w: property %q value %s below min %s", ErrNotMet, c.Property, v.Num.Dec(), c.Min.Dec())
		}
		if c.Max != nil && v.Num.Gt(c.Max) {
			return fmt.Errorf("%w: property %q value %s above max %s", ErrNotMet, c.Property, v.Num.Dec(), c.Max.Dec())
		}
		return nil

	case BoolEq:
		if v.Kind != trait.Number {
			return fmt.Errorf("%w: property %q is not numeric", ErrNotMet, c.Property)
		}
		if !v.Num.IsZero() != c.Bool {
			return fmt.Errorf("%w: property %q truthiness is not %v", ErrNotMet, c.Property, c.Bool)
		}
		return nil

	case StringEq:
		if v.Kind != trait.String {
			return fmt.Errorf("%w: property %q is not a string", ErrNotMet, c.Property)
		}
		if sha256.Sum256([]byte(v.Str)) != sha256.Sum256([]byte(c.Str)) {
			return fmt.Errorf("%w: property %q does not match", ErrNotMet, c.Property)
		}
		return nil

	case ValueEq:
		if !v.Equal(c.Value) {
			return fmt.Errorf("%w: property %q value differs", ErrNotMet, c.Property)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
}

// MinTier extracts the minimum-tier bound from a criteria list, which
// is the only constraint honored for unique-item slots. It is the Min
// bound of a Range criterion on the reserved property "tier".
func MinTier(criteria []Criterion) (uint8, bool) {
	for _, c := range criteria {
		if c.Mode == Range && c.Property == "tier" && c.Min != nil {
			// Bounds beyond the tier scale stay a bound; nothing
			// satisfies them.
			if !c.Min.IsUint64() || c.Min.Uint64() > 255 {
				return 255, true
			}
			return uint8(c.Min.Uint64()), true
		}
	}
	return 0, false
}
