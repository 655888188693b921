package forge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// UseOutcome reports the effect of one use call.
type UseOutcome struct {
	TokenID   *uint256.Int
	Tier      uint8
	Traits    []trait.Entry
	Destroyed bool
}

// Use invokes the item's mutator on a unique token. The module's
// returned traits are upserted onto the token; Destroy burns it. A
// module failure aborts the call with the token untouched.
func (e *Engine) Use(ctx context.Context, caller string, tokenID *uint256.Int, aux json.RawMessage) (*UseOutcome, error) {
	ctx, err := e.enter(ctx)
	if err != nil {
		return nil, err
	}
	if caller == "" {
		return nil, ErrEmptyCaller
	}
	if tokenID == nil || !token.IsUnique(tokenID) {
		return nil, ErrNotUnique
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.tokens[*tokenID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, token.Format(tokenID))
	}
	if st.Destroyed {
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, token.Format(tokenID))
	}
	owner, ok := e.index.OwnerOf(tokenID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, token.Format(tokenID))
	}
	if !e.authorizedLocked(owner, caller, st.ItemType, tokenID) {
		return nil, ErrNotAuthorized
	}

	it := e.items[st.ItemType]
	guard, err := e.moduleFor(it)
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNoMutator, st.ItemType)
	}

	res, err := guard.OnItemUse(ctx, mutator.UseRequest{
		TokenID:       new(uint256.Int).Set(tokenID),
		ItemID:        st.ItemType,
		Owner:         owner,
		Tier:          st.Tier,
		CurrentTraits: st.Traits.All(),
		Aux:           aux,
	})
	if err != nil {
		return nil, fmt.Errorf("use hook: %w", err)
	}

	if res.Destroy {
		// The owner holds exactly one unit; a failure here is a
		// bookkeeping fault. The burn settles before any trait write
		// lands.
		if err := e.ledger.Burn(owner, tokenID, uint256.NewInt(1)); err != nil {
			return nil, err
		}
		st.Destroyed = true
		e.index.NoteDestroyed(st.ItemType)
	}
	for _, entry := range res.Traits {
		st.Traits.Upsert(entry.Name, entry.Value)
	}
	outcome := &UseOutcome{
		TokenID:   new(uint256.Int).Set(tokenID),
		Tier:      st.Tier,
		Traits:    trait.CloneEntries(st.Traits.All()),
		Destroyed: res.Destroy,
	}

	e.appendEvent(ctx, journal.TokenStream(tokenID), journal.EventUsed, caller, journal.UseData{
		TokenID:   token.Format(tokenID),
		Owner:     owner,
		Caller:    caller,
		Destroyed: res.Destroy,
	})
	e.log.Debug("token used",
		"token", token.Format(tokenID), "owner", owner,
		"caller", caller, "destroyed", res.Destroy)
	return outcome, nil
}

// Consume burns fungible crafted items from an owner's balance, under
// the same authorization rules as Use.
func (e *Engine) Consume(ctx context.Context, caller, owner string, itemID, amount uint64) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" || owner == "" {
		return ErrEmptyCaller
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero", ErrBadAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.items[itemID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if it.Kind != blueprint.Fungible {
		return fmt.Errorf("%w: %d", ErrNotFungible, itemID)
	}
	if !e.authorizedLocked(owner, caller, itemID, nil) {
		return ErrNotAuthorized
	}
	if err := e.ledger.Burn(owner, token.Fungible(itemID), uint256.NewInt(amount)); err != nil {
		return err
	}

	e.appendEvent(ctx, journal.ItemStream(itemID), journal.EventConsumed, caller, journal.ConsumeData{
		TokenID: token.Format(token.Fungible(itemID)),
		Owner:   owner,
		Caller:  caller,
		Amount:  amount,
	})
	e.log.Debug("item consumed", "item", itemID, "owner", owner, "amount", amount)
	return nil
}

// Transfer moves tokens between owners on behalf of an authorized
// caller. Unique tokens pass through the item's transfer hook, which
// may veto the move.
func (e *Engine) Transfer(ctx context.Context, caller, from, to string, id, amount *uint256.Int) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" || from == "" || to == "" {
		return ErrEmptyCaller
	}
	if id == nil || amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: nil or zero", ErrBadAmount)
	}

	// Authorization only; the lock is released before the ledger call
	// so the transfer gate can take its own read view.
	e.mu.RLock()
	itemID := uint64(0)
	stream := journal.SystemStream
	if token.IsUnique(id) {
		if st, ok := e.tokens[*id]; ok {
			itemID = st.ItemType
		}
		stream = journal.TokenStream(id)
	} else if id.IsUint64() {
		if v := id.Uint64(); v >= 1 && v < e.nextID {
			itemID = v
			stream = journal.ItemStream(v)
		}
	}
	authorized := e.authorizedLocked(from, caller, itemID, id)
	e.mu.RUnlock()
	if !authorized {
		return ErrNotAuthorized
	}

	if err := e.ledger.Transfer(from, to, id, amount); err != nil {
		return err
	}

	e.appendEvent(ctx, stream, journal.EventTransferred, caller, journal.TransferData{
		TokenID: token.Format(id),
		From:    from,
		To:      to,
		Amount:  amount.Dec(),
	})
	return nil
}

// transferGate vetoes unique-token moves through the item's mutator.
// It runs inside the ledger's Transfer. Engine-internal transfers only
// move fungible identities, which return before any locking.
func (e *Engine) transferGate(from, to string, id, amount *uint256.Int) error {
	if id == nil || !token.IsUnique(id) {
		return nil
	}

	e.mu.RLock()
	st, ok := e.tokens[*id]
	if !ok || st.Destroyed {
		e.mu.RUnlock()
		return nil
	}
	it := e.items[st.ItemType]
	guard, err := e.moduleFor(it)
	req := mutator.TransferRequest{
		TokenID:       new(uint256.Int).Set(id),
		ItemID:        st.ItemType,
		From:          from,
		To:            to,
		Amount:        new(uint256.Int).Set(amount),
		CurrentTraits: st.Traits.All(),
	}
	e.mu.RUnlock()

	if err != nil {
		return err
	}
	if guard == nil {
		return nil
	}
	ctx := context.WithValue(context.Background(), reentryKey{}, struct{}{})
	allowed, err := guard.OnTransfer(ctx, req)
	if err != nil {
		return fmt.Errorf("transfer hook: %w", err)
	}
	if !allowed {
		return ErrTransferDenied
	}
	return nil
}
