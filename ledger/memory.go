package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

// Memory is the in-process Ledger. Balances are maps of
// identity → owner → amount, supply is identity → amount, mirroring
// the multi-token state layout:
//
//	balances:  map[uint256]map[address]uint256
//	operators: map[address]map[address]bool
//	supply:    map[uint256]uint256
//
// A zero balance is deleted rather than stored, so Exists tracks live
// supply exactly.
type Memory struct {
	mu        sync.RWMutex
	balances  map[uint256.Int]map[string]*uint256.Int
	supply    map[uint256.Int]*uint256.Int
	operators map[string]map[string]bool

	gate     TransferGate
	onUpdate UpdateFunc
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		balances:  make(map[uint256.Int]map[string]*uint256.Int),
		supply:    make(map[uint256.Int]*uint256.Int),
		operators: make(map[string]map[string]bool),
	}
}

// SetTransferGate installs the transfer veto hook. Wire-up happens
// before the ledger takes traffic; the gate is not swappable mid-run.
func (m *Memory) SetTransferGate(gate TransferGate) {
	m.gate = gate
}

// SetUpdateHook installs the balance-change observer.
func (m *Memory) SetUpdateHook(fn UpdateFunc) {
	m.onUpdate = fn
}

func (m *Memory) BalanceOf(owner string, id *uint256.Int) *uint256.Int {
	if owner == "" || id == nil {
		return uint256.NewInt(0)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	owners, ok := m.balances[*id]
	if !ok {
		return uint256.NewInt(0)
	}
	bal, ok := owners[owner]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

func (m *Memory) Exists(id *uint256.Int) bool {
	if id == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.supply[*id]
	return ok
}

func (m *Memory) TotalSupply(id *uint256.Int) *uint256.Int {
	if id == nil {
		return uint256.NewInt(0)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.supply[*id]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(s)
}

func (m *Memory) Mint(owner string, id, amount *uint256.Int) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if id == nil || amount == nil {
		return ErrNilArgument
	}
	if amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	supply, ok := m.supply[*id]
	if !ok {
		supply = uint256.NewInt(0)
	}
	if _, overflow := new(uint256.Int).AddOverflow(supply, amount); overflow {
		m.mu.Unlock()
		return fmt.Errorf("%w: supply of %s", ErrOverflow, id.Dec())
	}
	m.supply[*id] = new(uint256.Int).Add(supply, amount)
	m.credit(owner, id, amount)
	m.mu.Unlock()

	m.notify("", owner, id, amount)
	return nil
}

func (m *Memory) Burn(owner string, id, amount *uint256.Int) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if id == nil || amount == nil {
		return ErrNilArgument
	}
	if amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	if err := m.debit(owner, id, amount); err != nil {
		m.mu.Unlock()
		return err
	}
	m.shrinkSupply(id, amount)
	m.mu.Unlock()

	m.notify(owner, "", id, amount)
	return nil
}

func (m *Memory) BurnBatch(owner string, ids, amounts []*uint256.Int) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if len(ids) != len(amounts) {
		return fmt.Errorf("%w: %d ids, %d amounts", ErrLengthMismatch, len(ids), len(amounts))
	}

	m.mu.Lock()
	// Validate every line before mutating anything. Duplicate ids in
	// one batch must cover the summed amount.
	need := make(map[uint256.Int]*uint256.Int, len(ids))
	for i, id := range ids {
		if id == nil || amounts[i] == nil {
			m.mu.Unlock()
			return ErrNilArgument
		}
		sum, ok := need[*id]
		if !ok {
			sum = uint256.NewInt(0)
			need[*id] = sum
		}
		sum.Add(sum, amounts[i])
	}
	for key, total := range need {
		id := key
		if m.balanceLocked(owner, &id).Lt(total) {
			m.mu.Unlock()
			return fmt.Errorf("%w: owner %s id %s needs %s", ErrInsufficientBalance, owner, id.Dec(), total.Dec())
		}
	}
	for i, id := range ids {
		if amounts[i].IsZero() {
			continue
		}
		if err := m.debit(owner, id, amounts[i]); err != nil {
			// Unreachable after validation; kept as a hard stop so a
			// bookkeeping bug cannot half-apply a batch silently.
			m.mu.Unlock()
			return err
		}
		m.shrinkSupply(id, amounts[i])
	}
	m.mu.Unlock()

	for i, id := range ids {
		if amounts[i].IsZero() {
			continue
		}
		m.notify(owner, "", id, amounts[i])
	}
	return nil
}

func (m *Memory) Transfer(from, to string, id, amount *uint256.Int) error {
	if from == "" || to == "" {
		return ErrEmptyOwner
	}
	if id == nil || amount == nil {
		return ErrNilArgument
	}
	if amount.IsZero() {
		return nil
	}

	if m.gate != nil {
		if err := m.gate(from, to, id, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferVetoed, err)
		}
	}

	m.mu.Lock()
	if err := m.debit(from, id, amount); err != nil {
		m.mu.Unlock()
		return err
	}
	m.credit(to, id, amount)
	m.mu.Unlock()

	m.notify(from, to, id, amount)
	return nil
}

func (m *Memory) SetApprovalForAll(owner, operator string, approved bool) error {
	if owner == "" || operator == "" {
		return ErrEmptyOwner
	}
	if owner == operator {
		return ErrSelfApproval
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	grants, ok := m.operators[owner]
	if !ok {
		grants = make(map[string]bool)
		m.operators[owner] = grants
	}
	if approved {
		grants[operator] = true
	} else {
		delete(grants, operator)
		if len(grants) == 0 {
			delete(m.operators, owner)
		}
	}
	return nil
}

func (m *Memory) IsApprovedForAll(owner, operator string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operators[owner][operator]
}

// balanceLocked reads a balance with the lock already held.
func (m *Memory) balanceLocked(owner string, id *uint256.Int) *uint256.Int {
	owners, ok := m.balances[*id]
	if !ok {
		return uint256.NewInt(0)
	}
	bal, ok := owners[owner]
	if !ok {
		return uint256.NewInt(0)
	}
	return bal
}

func (m *Memory) credit(owner string, id, amount *uint256.Int) {
	owners, ok := m.balances[*id]
	if !ok {
		owners = make(map[string]*uint256.Int)
		m.balances[*id] = owners
	}
	bal, ok := owners[owner]
	if !ok {
		bal = uint256.NewInt(0)
		owners[owner] = bal
	}
	bal.Add(bal, amount)
}

func (m *Memory) debit(owner string, id, amount *uint256.Int) error {
	owners, ok := m.balances[*id]
	if !ok {
		return fmt.Errorf("%w: owner %s id %s", ErrInsufficientBalance, owner, id.Dec())
	}
	bal, ok := owners[owner]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: owner %s id %s", ErrInsufficientBalance, owner, id.Dec())
	}
	bal.Sub(bal, amount)
	if bal.IsZero() {
		delete(owners, owner)
		if len(owners) == 0 {
			delete(m.balances, *id)
		}
	}
	return nil
}

func (m *Memory) shrinkSupply(id, amount *uint256.Int) {
	supply, ok := m.supply[*id]
	if !ok {
		return
	}
	supply.Sub(supply, amount)
	if supply.IsZero() {
		delete(m.supply, *id)
	}
}

func (m *Memory) notify(from, to string, id, amount *uint256.Int) {
	if m.onUpdate != nil {
		m.onUpdate(from, to, id, amount)
	}
}
