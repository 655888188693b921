package forge

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// CreateItem registers a new item type and returns its identity.
// While creation is disabled only the publisher administrator may
// create. The definition's ID, Creator, and Frozen fields are assigned
// by the engine; freezing happens through FreezeItem only.
func (e *Engine) CreateItem(ctx context.Context, caller string, def *blueprint.ItemType) (uint64, error) {
	ctx, err := e.enter(ctx)
	if err != nil {
		return 0, err
	}
	if caller == "" {
		return 0, ErrEmptyCaller
	}
	if def == nil {
		return 0, blueprint.ErrNilItemType
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.creationEnabled && caller != e.admin {
		return 0, ErrCreationDisabled
	}

	it := def.Clone()
	// Identities registered as atoms or claimed by the payment currency
	// stay out of the item sequence.
	for e.atoms.Has(token.Fungible(e.nextID)) || e.currency.Eq(token.Fungible(e.nextID)) {
		e.nextID++
	}
	it.ID = e.nextID
	it.Creator = caller
	if it.Admin == "" {
		it.Admin = caller
	}
	it.Frozen = false

	if err := it.Validate(); err != nil {
		return 0, err
	}
	if err := e.crossCheckLocked(it); err != nil {
		return 0, err
	}

	e.items[it.ID] = it
	e.nextID++

	e.appendEvent(ctx, journal.ItemStream(it.ID), journal.EventItemCreated, caller, journal.ItemCreatedData{
		ItemID:  it.ID,
		Name:    it.Name,
		Kind:    string(it.Kind),
		CID:     it.CID(),
		Creator: caller,
	})
	e.log.Info("item created", "id", it.ID, "name", it.Name, "kind", string(it.Kind))
	return it.ID, nil
}

// UpdateItem replaces the definition of an unfrozen item type
// wholesale. Identity, creator, admin, and kind are immutable.
func (e *Engine) UpdateItem(ctx context.Context, caller string, id uint64, def *blueprint.ItemType) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" {
		return ErrEmptyCaller
	}
	if def == nil {
		return blueprint.ErrNilItemType
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.items[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if existing.Admin != caller {
		return ErrNotAdmin
	}
	if existing.Frozen {
		return fmt.Errorf("%w: %d", ErrFrozen, id)
	}
	if def.Kind != existing.Kind {
		return fmt.Errorf("%w: %d is %s", ErrKindChange, id, existing.Kind)
	}

	it := def.Clone()
	it.ID = id
	it.Creator = existing.Creator
	it.Admin = existing.Admin
	it.Frozen = false

	if err := it.Validate(); err != nil {
		return err
	}
	if err := e.crossCheckLocked(it); err != nil {
		return err
	}

	e.items[id] = it
	e.appendEvent(ctx, journal.ItemStream(id), journal.EventItemUpdated, caller, journal.ItemUpdatedData{
		ItemID: id,
		CID:    it.CID(),
	})
	e.log.Info("item updated", "id", id, "name", it.Name)
	return nil
}

// FreezeItem locks an item type against further structural edits.
// Freezing is one-way; a second freeze fails.
func (e *Engine) FreezeItem(ctx context.Context, caller string, id uint64) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.items[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if it.Admin != caller {
		return ErrNotAdmin
	}
	if it.Frozen {
		return fmt.Errorf("%w: %d", ErrFrozen, id)
	}
	it.Frozen = true

	e.appendEvent(ctx, journal.ItemStream(id), journal.EventItemFrozen, caller, journal.ItemFrozenData{ItemID: id})
	e.log.Info("item frozen", "id", id)
	return nil
}

// SetItemAdmin hands item administration to a new address. Allowed on
// frozen items; administration is not a structural edit.
func (e *Engine) SetItemAdmin(ctx context.Context, caller string, id uint64, newAdmin string) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if newAdmin == "" {
		return ErrEmptyAdmin
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.items[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if it.Admin != caller {
		return ErrNotAdmin
	}
	it.Admin = newAdmin

	e.appendEvent(ctx, journal.ItemStream(id), journal.EventItemAdmin, caller, journal.ItemAdminData{
		ItemID:   id,
		NewAdmin: newAdmin,
	})
	return nil
}

// SetCreationEnabled toggles open item creation. Publisher
// administrator only.
func (e *Engine) SetCreationEnabled(ctx context.Context, caller string, enabled bool) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrNotAuthorized
	}
	e.creationEnabled = enabled

	e.appendEvent(ctx, journal.SystemStream, journal.EventCreationToggle, caller, journal.CreationToggleData{Enabled: enabled})
	e.log.Info("creation toggled", "enabled", enabled)
	return nil
}

// CreationEnabled reports whether open item creation is on.
func (e *Engine) CreationEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.creationEnabled
}

// RegisterAtom adds a primitive resource definition. Publisher
// administrator only. Atom identities may not shadow crafted items or
// the payment currency.
func (e *Engine) RegisterAtom(ctx context.Context, caller string, def *atom.Def) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrNotAuthorized
	}
	if def == nil || def.ID == nil {
		return atom.ErrNilDef
	}
	if def.ID.IsUint64() {
		if v := def.ID.Uint64(); v >= 1 && v < e.nextID {
			return fmt.Errorf("%w: atom id %d is a crafted item", ErrIDCollision, v)
		}
	}
	if !def.ID.IsZero() && def.ID.Eq(e.currency) {
		return fmt.Errorf("%w: atom id %s is the payment currency", ErrIDCollision, def.ID.Dec())
	}
	if err := e.atoms.Register(def); err != nil {
		return err
	}

	e.appendEvent(ctx, journal.SystemStream, journal.EventAtomRegistered, caller, journal.AtomData{
		ID:   def.ID.Dec(),
		Name: def.Name,
	})
	e.log.Info("atom registered", "id", def.ID.Dec(), "name", def.Name)
	return nil
}

// SetAtomProps replaces the property sheet of a registered atom.
// Publisher administrator only.
func (e *Engine) SetAtomProps(ctx context.Context, caller string, id *uint256.Int, entries []trait.Entry) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrNotAuthorized
	}
	if err := trait.ValidateDefaults(entries); err != nil {
		return err
	}
	if err := e.atoms.SetProps(id, trait.FromEntries(entries)); err != nil {
		return err
	}

	name := ""
	if d, ok := e.atoms.Get(id); ok {
		name = d.Name
	}
	e.appendEvent(ctx, journal.SystemStream, journal.EventAtomProps, caller, journal.AtomData{
		ID:   id.Dec(),
		Name: name,
	})
	return nil
}

// MintResource credits atoms or payment currency to an owner.
// Publisher administrator only; crafted-item identities cannot be
// minted this way.
func (e *Engine) MintResource(ctx context.Context, caller, owner string, id, amount *uint256.Int) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrNotAuthorized
	}
	if id == nil || amount == nil {
		return atom.ErrNilDef
	}
	if token.IsUnique(id) {
		return fmt.Errorf("%w: cannot mint into the unique namespace", ErrIDCollision)
	}
	if !id.Eq(e.currency) {
		if id.IsUint64() {
			if v := id.Uint64(); v >= 1 && v < e.nextID {
				return fmt.Errorf("%w: id %d is a crafted item", ErrIDCollision, v)
			}
		}
		if !e.atoms.Has(id) {
			return fmt.Errorf("%w: %s", ErrUnknownAtom, id.Dec())
		}
	}
	if err := e.ledger.Mint(owner, id, amount); err != nil {
		return err
	}

	e.appendEvent(ctx, journal.SystemStream, journal.EventResourceMinted, caller, journal.ResourceMintData{
		TokenID: token.Format(id),
		Owner:   owner,
		Amount:  amount.Dec(),
	})
	return nil
}

// crossCheckLocked verifies the references a definition makes against
// live engine state: mutator module, fixed atoms, and item targets.
func (e *Engine) crossCheckLocked(it *blueprint.ItemType) error {
	if it.MutatorID != "" {
		if _, ok := e.mutators.Get(it.MutatorID); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMutator, it.MutatorID)
		}
	}
	for i, c := range it.Components {
		switch c.Kind {
		case blueprint.FixedAtom:
			if !e.atoms.Has(c.Target) {
				return fmt.Errorf("%w: component %d atom %s", ErrUnknownAtom, i, c.Target.Dec())
			}
		case blueprint.FixedItem:
			ref, ok := e.itemByIdentity(c.Target)
			if !ok || ref.Kind != blueprint.Fungible {
				return fmt.Errorf("%w: component %d item %s", ErrUnknownTarget, i, c.Target.Dec())
			}
		case blueprint.UniqueItem:
			if c.Target == nil || c.Target.IsZero() {
				continue
			}
			ref, ok := e.itemByIdentity(c.Target)
			if !ok || ref.Kind != blueprint.Unique {
				return fmt.Errorf("%w: component %d origin %s", ErrUnknownTarget, i, c.Target.Dec())
			}
		}
	}
	return nil
}

func (e *Engine) itemByIdentity(id *uint256.Int) (*blueprint.ItemType, bool) {
	if id == nil || !id.IsUint64() {
		return nil, false
	}
	it, ok := e.items[id.Uint64()]
	return it, ok
}
