package forge

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/token"
)

// SetApprovalForAll grants or revokes the ledger-wide operator right:
// the operator may act on every identity the caller holds.
func (e *Engine) SetApprovalForAll(ctx context.Context, caller, operator string, approved bool) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" {
		return ErrEmptyCaller
	}
	if operator == "" {
		return ErrEmptyOperator
	}
	if operator == caller {
		return ErrSelfApproval
	}
	if err := e.ledger.SetApprovalForAll(caller, operator, approved); err != nil {
		return err
	}

	e.appendEvent(ctx, journal.SystemStream, journal.EventApproval, caller, journal.ApprovalData{
		Owner:    caller,
		Operator: operator,
		Scope:    "all",
		Approved: approved,
	})
	return nil
}

// SetItemApproval grants or revokes operator rights over every token
// under one item type.
func (e *Engine) SetItemApproval(ctx context.Context, caller, operator string, itemID uint64, approved bool) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" {
		return ErrEmptyCaller
	}
	if operator == "" {
		return ErrEmptyOperator
	}
	if operator == caller {
		return ErrSelfApproval
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.items[itemID]; !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	key := grantKey{owner: caller, operator: operator}
	grants := e.itemGrants[key]
	if approved {
		if grants == nil {
			grants = make(map[uint64]bool)
			e.itemGrants[key] = grants
		}
		grants[itemID] = true
	} else {
		delete(grants, itemID)
		if len(grants) == 0 {
			delete(e.itemGrants, key)
		}
	}

	e.appendEvent(ctx, journal.ItemStream(itemID), journal.EventApproval, caller, journal.ApprovalData{
		Owner:    caller,
		Operator: operator,
		Scope:    "item",
		Target:   fmt.Sprintf("%d", itemID),
		Approved: approved,
	})
	return nil
}

// SetTokenApproval grants or revokes operator rights over one unique
// token.
func (e *Engine) SetTokenApproval(ctx context.Context, caller, operator string, tokenID *uint256.Int, approved bool) error {
	ctx, err := e.enter(ctx)
	if err != nil {
		return err
	}
	if caller == "" {
		return ErrEmptyCaller
	}
	if operator == "" {
		return ErrEmptyOperator
	}
	if operator == caller {
		return ErrSelfApproval
	}
	if tokenID == nil || !token.IsUnique(tokenID) {
		return ErrNotUnique
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.tokens[*tokenID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, token.Format(tokenID))
	}
	if st.Destroyed {
		return fmt.Errorf("%w: %s", ErrDestroyed, token.Format(tokenID))
	}
	key := grantKey{owner: caller, operator: operator}
	grants := e.tokenGrants[key]
	if approved {
		if grants == nil {
			grants = make(map[uint256.Int]bool)
			e.tokenGrants[key] = grants
		}
		grants[*tokenID] = true
	} else {
		delete(grants, *tokenID)
		if len(grants) == 0 {
			delete(e.tokenGrants, key)
		}
	}

	e.appendEvent(ctx, journal.TokenStream(tokenID), journal.EventApproval, caller, journal.ApprovalData{
		Owner:    caller,
		Operator: operator,
		Scope:    "token",
		Target:   token.Format(tokenID),
		Approved: approved,
	})
	return nil
}

// IsAuthorized reports effective authorization of operator over
// owner's holdings of one item or token.
func (e *Engine) IsAuthorized(owner, operator string, itemID uint64, tokenID *uint256.Int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.authorizedLocked(owner, operator, itemID, tokenID)
}

// authorizedLocked combines the layers: the owner acts freely, a
// ledger-wide operator covers everything, an item grant covers all
// tokens under the item, a token grant covers one identity.
func (e *Engine) authorizedLocked(owner, caller string, itemID uint64, tokenID *uint256.Int) bool {
	if owner == caller {
		return true
	}
	if e.ledger.IsApprovedForAll(owner, caller) {
		return true
	}
	key := grantKey{owner: owner, operator: caller}
	if itemID != 0 && e.itemGrants[key][itemID] {
		return true
	}
	if tokenID != nil && e.tokenGrants[key][*tokenID] {
		return true
	}
	return false
}
