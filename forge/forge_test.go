package forge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

const (
	admin = "publisher"
	alice = "alice"
	bob   = "bob"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hookMutator routes each module call to an optional closure; unset
// hooks behave permissively.
type hookMutator struct {
	calcTier   func(ctx context.Context, req mutator.TierRequest) (mutator.TierResult, error)
	onCraft    func(ctx context.Context, req mutator.CraftRequest) (mutator.CraftResult, error)
	onUse      func(ctx context.Context, req mutator.UseRequest) (mutator.UseResult, error)
	onTransfer func(ctx context.Context, req mutator.TransferRequest) (bool, error)
}

func (m *hookMutator) CalculateTier(ctx context.Context, req mutator.TierRequest) (mutator.TierResult, error) {
	if m.calcTier != nil {
		return m.calcTier(ctx, req)
	}
	return mutator.TierResult{}, nil
}

func (m *hookMutator) OnCraft(ctx context.Context, req mutator.CraftRequest) (mutator.CraftResult, error) {
	if m.onCraft != nil {
		return m.onCraft(ctx, req)
	}
	return mutator.CraftResult{Allowed: true, RequiresResources: true}, nil
}

func (m *hookMutator) OnItemUse(ctx context.Context, req mutator.UseRequest) (mutator.UseResult, error) {
	if m.onUse != nil {
		return m.onUse(ctx, req)
	}
	return mutator.UseResult{}, nil
}

func (m *hookMutator) OnTransfer(ctx context.Context, req mutator.TransferRequest) (bool, error) {
	if m.onTransfer != nil {
		return m.onTransfer(ctx, req)
	}
	return true, nil
}

func massProps(mass uint64) *trait.Set {
	return trait.FromEntries([]trait.Entry{{Name: "mass", Value: trait.Num(mass)}})
}

func entryValue(entries []trait.Entry, name string) (trait.Value, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return trait.Value{}, false
}

type world struct {
	t      *testing.T
	engine *forge.Engine
	ctx    context.Context
}

// newWorld builds an engine with creation enabled and a small atom
// economy: a fungible reagent and three shards of different mass.
func newWorld(t *testing.T) *world {
	t.Helper()
	e := forge.New(forge.Config{
		Admin:           admin,
		CreationEnabled: true,
		Logger:          quietLogger(),
	})
	ctx := context.Background()
	for _, def := range []*atom.Def{
		{ID: u(1001), Name: "ju2"},
		{ID: u(2040), Name: "shard-light", Props: massProps(40)},
		{ID: u(2050), Name: "shard-dull", Props: massProps(50)},
		{ID: u(2075), Name: "shard-mid", Props: massProps(75)},
		{ID: u(2150), Name: "shard-heavy", Props: massProps(150)},
	} {
		if err := e.RegisterAtom(ctx, admin, def); err != nil {
			t.Fatalf("RegisterAtom(%s) failed: %v", def.Name, err)
		}
	}
	return &world{t: t, engine: e, ctx: ctx}
}

func (w *world) fund(owner string, id *uint256.Int, amount uint64) {
	w.t.Helper()
	if err := w.engine.MintResource(w.ctx, admin, owner, id, u(amount)); err != nil {
		w.t.Fatalf("MintResource failed: %v", err)
	}
}

func (w *world) createItem(def *blueprint.ItemType) uint64 {
	w.t.Helper()
	id, err := w.engine.CreateItem(w.ctx, admin, def)
	if err != nil {
		w.t.Fatalf("CreateItem(%s) failed: %v", def.Name, err)
	}
	return id
}

// potionDef consumes two reagent units per crafted unit.
func potionDef() *blueprint.ItemType {
	return &blueprint.ItemType{
		Name: "Health Potion",
		Kind: blueprint.Fungible,
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: u(1001), Amount: 2},
		},
	}
}

// bladeDef takes one reagent plus any shard with mass in [50, 100].
func bladeDef() *blueprint.ItemType {
	return &blueprint.ItemType{
		Name:      "Storm Blade",
		Kind:      blueprint.Unique,
		MutatorID: "mass-tier",
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: u(1001), Amount: 1},
			{Kind: blueprint.VariableAtom, Amount: 1, Criteria: []criteria.Criterion{
				{Property: "mass", Mode: criteria.Range, Min: u(50), Max: u(100)},
			}},
		},
		DefaultTraits: []trait.Entry{{Name: "damage", Value: trait.Num(5)}},
		TierImages:    [7]string{"t1.png", "t2.png", "t3.png", "t4.png", "t5.png", "t6.png", "t7.png"},
	}
}

// massTier registers the reference tier module: tier = mass/25, damage
// = tier*10.
func (w *world) massTier() {
	w.t.Helper()
	err := w.engine.Mutators().Register("mass-tier", &hookMutator{
		calcTier: func(_ context.Context, req mutator.TierRequest) (mutator.TierResult, error) {
			if len(req.Variable) == 0 {
				return mutator.TierResult{}, nil
			}
			mass, ok := entryValue(req.Variable[0].Props, "mass")
			if !ok || mass.Kind != trait.Number {
				return mutator.TierResult{}, nil
			}
			tier := uint8(mass.Num.Uint64() / 25)
			return mutator.TierResult{
				Tier:   tier,
				Traits: []trait.Entry{{Name: "damage", Value: trait.Num(uint64(tier) * 10)}},
			}, nil
		},
	})
	if err != nil {
		w.t.Fatalf("Register mutator failed: %v", err)
	}
}

func TestCreateItemAssignsSequentialIDs(t *testing.T) {
	w := newWorld(t)
	first := w.createItem(potionDef())
	second := w.createItem(potionDef())
	if first != 1 || second != 2 {
		t.Errorf("Expected ids 1 and 2, got %d and %d", first, second)
	}
	it, ok := w.engine.Item(first)
	if !ok {
		t.Fatal("Expected item 1 to exist")
	}
	if it.Creator != admin || it.Admin != admin {
		t.Errorf("Expected creator and admin %q, got %q/%q", admin, it.Creator, it.Admin)
	}
	if it.Frozen {
		t.Error("Expected new item to be unfrozen")
	}
}

func TestCreationGating(t *testing.T) {
	e := forge.New(forge.Config{Admin: admin, Logger: quietLogger()})
	ctx := context.Background()

	if _, err := e.CreateItem(ctx, alice, potionDef()); !errors.Is(err, forge.ErrCreationDisabled) {
		t.Errorf("Expected ErrCreationDisabled for non-admin, got %v", err)
	}
	if err := e.RegisterAtom(ctx, admin, &atom.Def{ID: u(1001), Name: "ju2"}); err != nil {
		t.Fatalf("RegisterAtom failed: %v", err)
	}
	// The publisher administrator creates regardless of the flag.
	if _, err := e.CreateItem(ctx, admin, potionDef()); err != nil {
		t.Errorf("Expected admin create to pass, got %v", err)
	}

	if err := e.SetCreationEnabled(ctx, alice, true); !errors.Is(err, forge.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized toggling as non-admin, got %v", err)
	}
	if err := e.SetCreationEnabled(ctx, admin, true); err != nil {
		t.Fatalf("SetCreationEnabled failed: %v", err)
	}
	if _, err := e.CreateItem(ctx, alice, potionDef()); err != nil {
		t.Errorf("Expected open creation to pass, got %v", err)
	}
}

func TestCreateItemCrossChecks(t *testing.T) {
	w := newWorld(t)

	missingAtom := potionDef()
	missingAtom.Components[0].Target = u(9999)
	if _, err := w.engine.CreateItem(w.ctx, admin, missingAtom); !errors.Is(err, forge.ErrUnknownAtom) {
		t.Errorf("Expected ErrUnknownAtom, got %v", err)
	}

	missingMutator := potionDef()
	missingMutator.MutatorID = "nope"
	if _, err := w.engine.CreateItem(w.ctx, admin, missingMutator); !errors.Is(err, forge.ErrUnknownMutator) {
		t.Errorf("Expected ErrUnknownMutator, got %v", err)
	}

	missingItem := &blueprint.ItemType{
		Name: "Elixir",
		Kind: blueprint.Fungible,
		Components: []blueprint.Component{
			{Kind: blueprint.FixedItem, Target: u(42), Amount: 1},
		},
	}
	if _, err := w.engine.CreateItem(w.ctx, admin, missingItem); !errors.Is(err, forge.ErrUnknownTarget) {
		t.Errorf("Expected ErrUnknownTarget, got %v", err)
	}
}

func TestUpdateItem(t *testing.T) {
	w := newWorld(t)
	id := w.createItem(potionDef())

	updated := potionDef()
	updated.Description = "Restores vigor"
	updated.Components[0].Amount = 3
	if err := w.engine.UpdateItem(w.ctx, admin, id, updated); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	it, _ := w.engine.Item(id)
	if it.Components[0].Amount != 3 || it.Description != "Restores vigor" {
		t.Errorf("Expected replaced definition, got %+v", it)
	}

	if err := w.engine.UpdateItem(w.ctx, alice, id, potionDef()); !errors.Is(err, forge.ErrNotAdmin) {
		t.Errorf("Expected ErrNotAdmin, got %v", err)
	}

	wrongKind := potionDef()
	wrongKind.Kind = blueprint.Unique
	if err := w.engine.UpdateItem(w.ctx, admin, id, wrongKind); !errors.Is(err, forge.ErrKindChange) {
		t.Errorf("Expected ErrKindChange, got %v", err)
	}

	if err := w.engine.UpdateItem(w.ctx, admin, 99, potionDef()); !errors.Is(err, forge.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestFreezeIsIrreversible(t *testing.T) {
	w := newWorld(t)
	id := w.createItem(potionDef())

	if err := w.engine.FreezeItem(w.ctx, alice, id); !errors.Is(err, forge.ErrNotAdmin) {
		t.Errorf("Expected ErrNotAdmin, got %v", err)
	}
	if err := w.engine.FreezeItem(w.ctx, admin, id); err != nil {
		t.Fatalf("FreezeItem failed: %v", err)
	}
	if it, _ := w.engine.Item(id); !it.Frozen {
		t.Error("Expected item to be frozen")
	}
	if err := w.engine.FreezeItem(w.ctx, admin, id); !errors.Is(err, forge.ErrFrozen) {
		t.Errorf("Expected second freeze to fail with ErrFrozen, got %v", err)
	}
	if err := w.engine.UpdateItem(w.ctx, admin, id, potionDef()); !errors.Is(err, forge.ErrFrozen) {
		t.Errorf("Expected update after freeze to fail with ErrFrozen, got %v", err)
	}
	// Administration is not a structural edit.
	if err := w.engine.SetItemAdmin(w.ctx, admin, id, alice); err != nil {
		t.Errorf("Expected admin handover on frozen item to pass, got %v", err)
	}
}

func TestSetItemAdmin(t *testing.T) {
	w := newWorld(t)
	id := w.createItem(potionDef())

	if err := w.engine.SetItemAdmin(w.ctx, admin, id, ""); !errors.Is(err, forge.ErrEmptyAdmin) {
		t.Errorf("Expected ErrEmptyAdmin, got %v", err)
	}
	if err := w.engine.SetItemAdmin(w.ctx, admin, id, alice); err != nil {
		t.Fatalf("SetItemAdmin failed: %v", err)
	}
	// The old admin lost its rights.
	if err := w.engine.UpdateItem(w.ctx, admin, id, potionDef()); !errors.Is(err, forge.ErrNotAdmin) {
		t.Errorf("Expected old admin to be rejected, got %v", err)
	}
	if err := w.engine.UpdateItem(w.ctx, alice, id, potionDef()); err != nil {
		t.Errorf("Expected new admin to update, got %v", err)
	}
}

func TestAtomItemIDCollision(t *testing.T) {
	e := forge.New(forge.Config{Admin: admin, CreationEnabled: true, Logger: quietLogger()})
	ctx := context.Background()

	// An atom registered at identity 1 pushes the item sequence past it.
	if err := e.RegisterAtom(ctx, admin, &atom.Def{ID: u(1), Name: "early"}); err != nil {
		t.Fatalf("RegisterAtom failed: %v", err)
	}
	id, err := e.CreateItem(ctx, admin, &blueprint.ItemType{Name: "First", Kind: blueprint.Fungible})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if id != 2 {
		t.Errorf("Expected item sequence to skip the atom identity, got %d", id)
	}

	// The reverse direction is rejected outright.
	if err := e.RegisterAtom(ctx, admin, &atom.Def{ID: u(2), Name: "late"}); !errors.Is(err, forge.ErrIDCollision) {
		t.Errorf("Expected ErrIDCollision registering an atom over an item, got %v", err)
	}
}

func TestMintResourceGuards(t *testing.T) {
	w := newWorld(t)
	itemID := w.createItem(potionDef())

	if err := w.engine.MintResource(w.ctx, alice, alice, u(1001), u(10)); !errors.Is(err, forge.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for non-admin mint, got %v", err)
	}
	if err := w.engine.MintResource(w.ctx, admin, alice, u(7777), u(10)); !errors.Is(err, forge.ErrUnknownAtom) {
		t.Errorf("Expected ErrUnknownAtom, got %v", err)
	}
	if err := w.engine.MintResource(w.ctx, admin, alice, u(itemID), u(10)); !errors.Is(err, forge.ErrIDCollision) {
		t.Errorf("Expected ErrIDCollision minting a crafted item, got %v", err)
	}
	if err := w.engine.MintResource(w.ctx, admin, alice, token.Unique(1, 1), u(1)); !errors.Is(err, forge.ErrIDCollision) {
		t.Errorf("Expected ErrIDCollision minting into the unique namespace, got %v", err)
	}
	// Payment currency needs no atom registration.
	if err := w.engine.MintResource(w.ctx, admin, alice, u(0), u(500)); err != nil {
		t.Errorf("Expected currency mint to pass, got %v", err)
	}
	if got := w.engine.BalanceOf(alice, u(0)); !got.Eq(u(500)) {
		t.Errorf("Expected 500 currency, got %s", got.Dec())
	}
}

func TestApprovalLayers(t *testing.T) {
	w := newWorld(t)
	w.massTier()
	itemID := w.createItem(bladeDef())
	w.fund(alice, u(1001), 10)
	w.fund(alice, u(2075), 1)

	res, err := w.engine.Craft(w.ctx, forge.CraftRequest{
		Caller: alice, ItemID: itemID, Amount: 1, Variable: []*uint256.Int{u(2075)},
	})
	if err != nil {
		t.Fatalf("Craft failed: %v", err)
	}
	tok := res.TokenID

	if w.engine.IsAuthorized(alice, bob, itemID, tok) {
		t.Error("Expected bob to start unauthorized")
	}

	// Token-level grant covers exactly one identity.
	if err := w.engine.SetTokenApproval(w.ctx, alice, bob, tok, true); err != nil {
		t.Fatalf("SetTokenApproval failed: %v", err)
	}
	if !w.engine.IsAuthorized(alice, bob, itemID, tok) {
		t.Error("Expected token grant to authorize")
	}
	if w.engine.IsAuthorized(alice, bob, itemID, nil) {
		t.Error("Expected token grant not to cover the item scope")
	}
	if err := w.engine.SetTokenApproval(w.ctx, alice, bob, tok, false); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if w.engine.IsAuthorized(alice, bob, itemID, tok) {
		t.Error("Expected revoked token grant to deny")
	}

	// Item-level grant covers all tokens under the item.
	if err := w.engine.SetItemApproval(w.ctx, alice, bob, itemID, true); err != nil {
		t.Fatalf("SetItemApproval failed: %v", err)
	}
	if !w.engine.IsAuthorized(alice, bob, itemID, tok) {
		t.Error("Expected item grant to authorize")
	}

	// The ledger-wide grant covers everything.
	if err := w.engine.SetItemApproval(w.ctx, alice, bob, itemID, false); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := w.engine.SetApprovalForAll(w.ctx, alice, bob, true); err != nil {
		t.Fatalf("SetApprovalForAll failed: %v", err)
	}
	if !w.engine.IsAuthorized(alice, bob, itemID, tok) {
		t.Error("Expected global grant to authorize")
	}

	if err := w.engine.SetApprovalForAll(w.ctx, alice, alice, true); !errors.Is(err, forge.ErrSelfApproval) {
		t.Errorf("Expected ErrSelfApproval, got %v", err)
	}
	if err := w.engine.SetItemApproval(w.ctx, alice, bob, 99, true); !errors.Is(err, forge.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestModuleReentryRejected(t *testing.T) {
	w := newWorld(t)
	var engine *forge.Engine = w.engine
	var reentryErr error
	err := w.engine.Mutators().Register("reenter", &hookMutator{
		onUse: func(ctx context.Context, req mutator.UseRequest) (mutator.UseResult, error) {
			_, reentryErr = engine.Craft(ctx, forge.CraftRequest{Caller: req.Owner, ItemID: 1, Amount: 1})
			return mutator.UseResult{}, reentryErr
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	def := &blueprint.ItemType{Name: "Mirror", Kind: blueprint.Unique, MutatorID: "reenter"}
	id := w.createItem(def)
	res, err := w.engine.Craft(w.ctx, forge.CraftRequest{Caller: alice, ItemID: id, Amount: 1})
	if err != nil {
		t.Fatalf("Craft failed: %v", err)
	}

	if _, err := w.engine.Use(w.ctx, alice, res.TokenID, nil); err == nil {
		t.Fatal("Expected use to fail when the module re-enters")
	}
	if !errors.Is(reentryErr, forge.ErrReentrant) {
		t.Errorf("Expected ErrReentrant inside the module, got %v", reentryErr)
	}
}
