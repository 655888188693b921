// Package atom tracks the primitive resources that blueprints consume.
// Atom supply lives in the resource ledger; this registry holds the
// per-identity property sheets that criteria are evaluated against.
package atom

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/trait"
)

// Def describes one atom: its ledger identity and the properties a
// variable blueprint slot can constrain.
type Def struct {
	ID    *uint256.Int `json:"id"`
	Name  string       `json:"name"`
	Props *trait.Set   `json:"props,omitempty"`
}

// Validate checks the definition before registration.
func (d *Def) Validate() error {
	if d == nil || d.ID == nil {
		return ErrNilDef
	}
	if d.ID.IsZero() {
		return ErrZeroID
	}
	if d.ID.BitLen() > 255 {
		return fmt.Errorf("%w: %s", ErrNamespace, d.ID.Hex())
	}
	if d.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// Registry is the engine's view of the atom economy. Safe for
// concurrent readers; registration takes the write lock.
type Registry struct {
	mu   sync.RWMutex
	defs map[uint256.Int]*Def
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[uint256.Int]*Def)}
}

// Register adds an atom definition. Identities are permanent; a second
// registration under the same identity fails.
func (r *Registry) Register(d *Def) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := *d.ID
	if _, ok := r.defs[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, d.ID.Dec())
	}
	props := d.Props
	if props == nil {
		props = trait.NewSet()
	}
	r.defs[key] = &Def{
		ID:    new(uint256.Int).Set(d.ID),
		Name:  d.Name,
		Props: props.Clone(),
	}
	return nil
}

// SetProps replaces the property sheet of a registered atom.
func (r *Registry) SetProps(id *uint256.Int, props *trait.Set) error {
	if id == nil {
		return ErrNilDef
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[*id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id.Dec())
	}
	if props == nil {
		props = trait.NewSet()
	}
	d.Props = props.Clone()
	return nil
}

// Has reports whether id names a registered atom.
func (r *Registry) Has(id *uint256.Int) bool {
	if id == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[*id]
	return ok
}

// Get returns a copy of the definition for id.
func (r *Registry) Get(id *uint256.Int) (*Def, bool) {
	if id == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[*id]
	if !ok {
		return nil, false
	}
	return &Def{
		ID:    new(uint256.Int).Set(d.ID),
		Name:  d.Name,
		Props: d.Props.Clone(),
	}, true
}

// Props returns the property sheet for id, for criteria evaluation.
func (r *Registry) Props(id *uint256.Int) (*trait.Set, bool) {
	if id == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[*id]
	if !ok {
		return nil, false
	}
	return d.Props, true
}

// Len returns the number of registered atoms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// All returns copies of every definition, ordered by identity.
func (r *Registry) All() []*Def {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, &Def{
			ID:    new(uint256.Int).Set(d.ID),
			Name:  d.Name,
			Props: d.Props.Clone(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Lt(out[j].ID)
	})
	return out
}
