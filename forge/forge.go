// Package forge implements the crafting core: publishers author item
// types, holders craft them by consuming atoms and other items, and
// publisher-chosen mutator modules steer tiers, admission, use, and
// transfers of the results.
//
// The engine serializes every state-mutating operation behind one lock
// and rejects re-entry from module callbacks, so a craft either
// commits completely or leaves no trace. Balances live in the resource
// ledger; the engine owns item definitions, unique-token state, the
// approval layers, and the audit journal.
package forge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/ledger"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/tracking"
)

// Config assembles an engine. Zero-value fields get working defaults;
// a bare Config{} yields a fully in-memory engine.
type Config struct {
	// Admin is the publisher administrator: the only caller allowed to
	// register atoms, mint resources, toggle creation, and create item
	// types while creation is disabled.
	Admin string
	// CreationEnabled opens item-type creation to every caller.
	CreationEnabled bool

	Ledger   ledger.Ledger
	Atoms    *atom.Registry
	Mutators *mutator.Registry
	Index    *tracking.Index
	Journal  journal.Store
	Logger   *slog.Logger

	// MutatorBudget bounds each module call; zero applies the package
	// default.
	MutatorBudget time.Duration
	// Currency is the ledger identity payments settle in. Defaults to
	// identity zero.
	Currency *uint256.Int
}

type grantKey struct {
	owner    string
	operator string
}

// Engine is the crafting core. All methods are safe for concurrent
// use; mutating calls are serialized.
type Engine struct {
	mu sync.RWMutex

	ledger   ledger.Ledger
	atoms    *atom.Registry
	mutators *mutator.Registry
	index    *tracking.Index
	journal  journal.Store
	log      *slog.Logger
	budget   time.Duration
	currency *uint256.Int

	admin           string
	creationEnabled bool

	items   map[uint64]*blueprint.ItemType
	nextID  uint64
	serials map[uint64]uint64
	tokens  map[uint256.Int]*tokenState

	itemGrants  map[grantKey]map[uint64]bool
	tokenGrants map[grantKey]map[uint256.Int]bool
}

type transferGated interface {
	SetTransferGate(ledger.TransferGate)
}

type updateHooked interface {
	SetUpdateHook(ledger.UpdateFunc)
}

// New builds an engine and wires the ledger's transfer gate and update
// hook when the ledger supports them.
func New(cfg Config) *Engine {
	e := &Engine{
		ledger:          cfg.Ledger,
		atoms:           cfg.Atoms,
		mutators:        cfg.Mutators,
		index:           cfg.Index,
		journal:         cfg.Journal,
		log:             cfg.Logger,
		budget:          cfg.MutatorBudget,
		currency:        cfg.Currency,
		admin:           cfg.Admin,
		creationEnabled: cfg.CreationEnabled,
		items:           make(map[uint64]*blueprint.ItemType),
		nextID:          1,
		serials:         make(map[uint64]uint64),
		tokens:          make(map[uint256.Int]*tokenState),
		itemGrants:      make(map[grantKey]map[uint64]bool),
		tokenGrants:     make(map[grantKey]map[uint256.Int]bool),
	}
	if e.ledger == nil {
		e.ledger = ledger.NewMemory()
	}
	if e.atoms == nil {
		e.atoms = atom.NewRegistry()
	}
	if e.mutators == nil {
		e.mutators = mutator.NewRegistry()
	}
	if e.index == nil {
		e.index = tracking.NewIndex()
	}
	if e.journal == nil {
		e.journal = journal.NewMemory()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.budget <= 0 {
		e.budget = mutator.DefaultBudget
	}
	if e.currency == nil {
		e.currency = uint256.NewInt(0)
	}

	if l, ok := e.ledger.(updateHooked); ok {
		l.SetUpdateHook(e.index.OnUpdate)
	}
	if l, ok := e.ledger.(transferGated); ok {
		l.SetTransferGate(e.transferGate)
	}
	return e
}

// Ledger exposes the balance authority for reads.
func (e *Engine) Ledger() ledger.Ledger { return e.ledger }

// Atoms exposes the atom registry for reads.
func (e *Engine) Atoms() *atom.Registry { return e.atoms }

// Mutators exposes the module registry.
func (e *Engine) Mutators() *mutator.Registry { return e.mutators }

// Index exposes the ownership index for reads.
func (e *Engine) Index() *tracking.Index { return e.index }

// Journal exposes the audit journal for reads.
func (e *Engine) Journal() journal.Store { return e.journal }

// Currency returns the payment identity.
func (e *Engine) Currency() *uint256.Int {
	return new(uint256.Int).Set(e.currency)
}

// Admin returns the publisher administrator address.
func (e *Engine) Admin() string { return e.admin }

type reentryKey struct{}

// enter rejects calls arriving from inside a module callback and marks
// the context handed onward to modules. The check runs before any lock
// is taken.
func (e *Engine) enter(ctx context.Context) (context.Context, error) {
	if ctx.Value(reentryKey{}) != nil {
		return nil, ErrReentrant
	}
	return context.WithValue(ctx, reentryKey{}, struct{}{}), nil
}

// moduleFor resolves an item type's mutator behind the call guard.
func (e *Engine) moduleFor(it *blueprint.ItemType) (*mutator.Guard, error) {
	if it.MutatorID == "" {
		return nil, nil
	}
	m, ok := e.mutators.Get(it.MutatorID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMutator, it.MutatorID)
	}
	return mutator.Guarded(m, e.budget), nil
}

// appendEvent records an audit event. The triggering operation has
// already committed, so journal failures are logged, not propagated.
func (e *Engine) appendEvent(ctx context.Context, stream string, typ journal.EventType, actor string, data interface{}) {
	ev, err := journal.NewEvent(stream, typ, actor, data)
	if err == nil {
		_, err = e.journal.Append(ctx, ev)
	}
	if err != nil {
		e.log.Error("journal append failed", "stream", stream, "type", string(typ), "err", err)
	}
}
