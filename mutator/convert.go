package mutator

import (
	"fmt"
	"math"
	"sort"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// maxExactJS is the largest integer a script sees without precision
// loss. Larger numbers cross the boundary as decimal strings.
const maxExactJS = uint64(1) << 53

func idToJS(id *uint256.Int) interface{} {
	if id == nil {
		return nil
	}
	return token.Format(id)
}

func paymentToJS(v *uint256.Int) interface{} {
	if v == nil {
		return float64(0)
	}
	if v.IsUint64() && v.Uint64() <= maxExactJS {
		return float64(v.Uint64())
	}
	return v.Dec()
}

func valueToJS(v trait.Value) interface{} {
	switch v.Kind {
	case trait.Number:
		if v.Num == nil {
			return float64(0)
		}
		if v.Num.IsUint64() && v.Num.Uint64() <= maxExactJS {
			return float64(v.Num.Uint64())
		}
		return v.Num.Dec()
	case trait.String:
		return v.Str
	default:
		return nil
	}
}

// traitsToJS flattens entries into a plain object, so scripts read
// props.mass rather than walking an entry array.
func traitsToJS(entries []trait.Entry) map[string]interface{} {
	out := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		out[e.Name] = valueToJS(e.Value)
	}
	return out
}

func instancesToJS(list []Instance) []interface{} {
	out := make([]interface{}, len(list))
	for i, inst := range list {
		entry := map[string]interface{}{
			"id":    idToJS(inst.ID),
			"props": traitsToJS(inst.Props),
		}
		if inst.ItemType != 0 {
			entry["itemType"] = inst.ItemType
			entry["tier"] = inst.Tier
		}
		out[i] = entry
	}
	return out
}

// jsToValue maps a script value back to a trait value. Booleans become
// 0/1 numbers, matching how boolean criteria read numeric properties.
func jsToValue(x interface{}) (trait.Value, error) {
	switch v := x.(type) {
	case bool:
		if v {
			return trait.Num(1), nil
		}
		return trait.Num(0), nil
	case int64:
		if v < 0 {
			return trait.Value{}, fmt.Errorf("%w: negative number %d", ErrBadResult, v)
		}
		return trait.Num(uint64(v)), nil
	case float64:
		if v < 0 || v != math.Trunc(v) || v > float64(maxExactJS) {
			return trait.Value{}, fmt.Errorf("%w: number %v is not a non-negative integer", ErrBadResult, v)
		}
		return trait.Num(uint64(v)), nil
	case string:
		return trait.Str(v), nil
	default:
		return trait.Value{}, fmt.Errorf("%w: unsupported trait value %T", ErrBadResult, x)
	}
}

// jsToTraits accepts either an object (names sorted for determinism)
// or an array of {name, value} entries when the script wants to
// control ordering.
func jsToTraits(x interface{}) ([]trait.Entry, error) {
	switch v := x.(type) {
	case nil:
		return nil, nil

	case map[string]interface{}:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]trait.Entry, 0, len(names))
		for _, name := range names {
			val, err := jsToValue(v[name])
			if err != nil {
				return nil, fmt.Errorf("trait %q: %w", name, err)
			}
			out = append(out, trait.Entry{Name: name, Value: val})
		}
		return out, nil

	case []interface{}:
		out := make([]trait.Entry, 0, len(v))
		for i, raw := range v {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: trait entry %d is not an object", ErrBadResult, i)
			}
			name, ok := m["name"].(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: trait entry %d has no name", ErrBadResult, i)
			}
			val, err := jsToValue(m["value"])
			if err != nil {
				return nil, fmt.Errorf("trait %q: %w", name, err)
			}
			out = append(out, trait.Entry{Name: name, Value: val})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: traits must be an object or entry array, got %T", ErrBadResult, x)
	}
}

func asUint(x interface{}) (uint64, bool) {
	switch v := x.(type) {
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func tierResultFromJS(res interface{}) (TierResult, error) {
	m, ok := res.(map[string]interface{})
	if !ok {
		return TierResult{}, fmt.Errorf("%w: calculateTier must return {tier, traits}, got %T", ErrBadResult, res)
	}
	tier, ok := asUint(m["tier"])
	if !ok || tier > 255 {
		return TierResult{}, fmt.Errorf("%w: tier %v", ErrBadResult, m["tier"])
	}
	traits, err := jsToTraits(m["traits"])
	if err != nil {
		return TierResult{}, err
	}
	return TierResult{Tier: uint8(tier), Traits: traits}, nil
}

func craftResultFromJS(res interface{}) (CraftResult, error) {
	switch v := res.(type) {
	case bool:
		return CraftResult{Allowed: v, RequiresResources: true}, nil
	case map[string]interface{}:
		allowed, ok := v["allowed"].(bool)
		if !ok {
			return CraftResult{}, fmt.Errorf("%w: onCraft result needs a boolean allowed", ErrBadResult)
		}
		requires := true
		if raw, present := v["requiresResources"]; present {
			b, ok := raw.(bool)
			if !ok {
				return CraftResult{}, fmt.Errorf("%w: requiresResources must be boolean", ErrBadResult)
			}
			requires = b
		}
		return CraftResult{Allowed: allowed, RequiresResources: requires}, nil
	default:
		return CraftResult{}, fmt.Errorf("%w: onCraft returned %T", ErrBadResult, res)
	}
}

// useResultFromJS tolerates an empty return: a use hook that only
// observes is valid.
func useResultFromJS(res interface{}) (UseResult, error) {
	if res == nil {
		return UseResult{}, nil
	}
	m, ok := res.(map[string]interface{})
	if !ok {
		return UseResult{}, fmt.Errorf("%w: onItemUse returned %T", ErrBadResult, res)
	}
	traits, err := jsToTraits(m["traits"])
	if err != nil {
		return UseResult{}, err
	}
	destroy := false
	if raw, present := m["destroy"]; present {
		b, ok := raw.(bool)
		if !ok {
			return UseResult{}, fmt.Errorf("%w: destroy must be boolean", ErrBadResult)
		}
		destroy = b
	}
	return UseResult{Traits: traits, Destroy: destroy}, nil
}

func allowedFromJS(res interface{}) (bool, error) {
	switch v := res.(type) {
	case bool:
		return v, nil
	case map[string]interface{}:
		allowed, ok := v["allowed"].(bool)
		if !ok {
			return false, fmt.Errorf("%w: onTransfer result needs a boolean allowed", ErrBadResult)
		}
		return allowed, nil
	default:
		return false, fmt.Errorf("%w: onTransfer returned %T", ErrBadResult, res)
	}
}
