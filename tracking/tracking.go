// Package tracking keeps the denormalized read model the ledger cannot
// answer by itself: which unique tokens an owner currently holds, which
// owner holds a given unique token, and per-item crafting statistics.
// It hangs off the ledger update hook and must never fail the balance
// change that feeds it.
package tracking

import (
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/token"
)

// Stats counts lifetime activity for one item type.
type Stats struct {
	Crafted   uint64 `json:"crafted"`
	Destroyed uint64 `json:"destroyed"`
}

// arena is an order-free set of token ids with O(1) insert and remove.
// Removal swaps the last element into the vacated slot.
type arena struct {
	ids []uint256.Int
	pos map[uint256.Int]int
}

func (a *arena) add(id uint256.Int) {
	if _, ok := a.pos[id]; ok {
		return
	}
	a.pos[id] = len(a.ids)
	a.ids = append(a.ids, id)
}

func (a *arena) remove(id uint256.Int) {
	i, ok := a.pos[id]
	if !ok {
		return
	}
	last := len(a.ids) - 1
	moved := a.ids[last]
	a.ids[i] = moved
	a.pos[moved] = i
	a.ids = a.ids[:last]
	delete(a.pos, id)
}

// Index is the live ownership and statistics index.
type Index struct {
	mu      sync.RWMutex
	arenas  map[string]*arena
	owners  map[uint256.Int]string
	stats   map[uint64]*Stats
	defects atomic.Uint64
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		arenas: make(map[string]*arena),
		owners: make(map[uint256.Int]string),
		stats:  make(map[uint64]*Stats),
	}
}

// OnUpdate observes one committed balance change. It satisfies
// ledger.UpdateFunc. Fungible moves are ignored; the ledger already
// answers fungible balance queries. A panic here is swallowed and
// counted so the triggering operation cannot be failed by the index.
func (x *Index) OnUpdate(from, to string, id, amount *uint256.Int) {
	defer func() {
		if r := recover(); r != nil {
			x.defects.Add(1)
		}
	}()
	if id == nil || !token.IsUnique(id) {
		return
	}
	key := *id
	x.mu.Lock()
	defer x.mu.Unlock()
	if from != "" {
		if a, ok := x.arenas[from]; ok {
			a.remove(key)
			if len(a.ids) == 0 {
				delete(x.arenas, from)
			}
		}
		delete(x.owners, key)
	}
	if to != "" {
		a, ok := x.arenas[to]
		if !ok {
			a = &arena{pos: make(map[uint256.Int]int)}
			x.arenas[to] = a
		}
		a.add(key)
		x.owners[key] = to
	}
}

// OwnerOf returns the current holder of a unique token.
func (x *Index) OwnerOf(id *uint256.Int) (string, bool) {
	if id == nil {
		return "", false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	owner, ok := x.owners[*id]
	return owner, ok
}

// TokensOf returns a copy of every unique token owner currently holds.
// Order is not meaningful.
func (x *Index) TokensOf(owner string) []*uint256.Int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	a, ok := x.arenas[owner]
	if !ok {
		return nil
	}
	out := make([]*uint256.Int, len(a.ids))
	for i := range a.ids {
		id := a.ids[i]
		out[i] = &id
	}
	return out
}

// TokenCount returns how many unique tokens owner holds.
func (x *Index) TokenCount(owner string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if a, ok := x.arenas[owner]; ok {
		return len(a.ids)
	}
	return 0
}

// NoteCrafted records units minted for an item type.
func (x *Index) NoteCrafted(itemID, units uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.statsFor(itemID).Crafted += units
}

// NoteDestroyed records one destroyed token for an item type.
func (x *Index) NoteDestroyed(itemID uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.statsFor(itemID).Destroyed++
}

// StatsFor returns lifetime counters for an item type.
func (x *Index) StatsFor(itemID uint64) Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if s, ok := x.stats[itemID]; ok {
		return *s
	}
	return Stats{}
}

// Defects reports how many hook panics were swallowed.
func (x *Index) Defects() uint64 {
	return x.defects.Load()
}

func (x *Index) statsFor(itemID uint64) *Stats {
	s, ok := x.stats[itemID]
	if !ok {
		s = &Stats{}
		x.stats[itemID] = s
	}
	return s
}
