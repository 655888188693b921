package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// CraftRequest asks the engine to craft Amount units of an item type
// from the caller's resources.
type CraftRequest struct {
	Caller string
	ItemID uint64
	// Amount is the number of units to craft. Unique item types craft
	// one at a time.
	Amount uint64
	// Variable supplies one atom identity per variable-atom slot, in
	// blueprint component order.
	Variable []*uint256.Int
	// Unique supplies one owned unique token per unique-item slot, in
	// blueprint component order.
	Unique []*uint256.Int
	// Aux is handed through to the mutator's admission hook.
	Aux json.RawMessage
}

// CraftResult reports what a successful craft minted and consumed.
type CraftResult struct {
	ItemID     uint64
	Kind       blueprint.Kind
	TokenID    *uint256.Int
	Serial     uint64
	Tier       uint8
	Traits     []trait.Entry
	Inputs     []token.Input
	Commitment string
	// Free marks a craft whose mutator waived resource consumption.
	Free bool
}

// consumePlan is the fully validated consumption of one craft: the
// ordered input lines, the aligned burn arrays, the unique ingredient
// records to retire, and the payment due.
type consumePlan struct {
	inputs         []token.Input
	burnIDs        []*uint256.Int
	burnAmounts    []*uint256.Int
	consumedTokens []*tokenState
	cost           *uint256.Int

	vars  []mutator.Instance
	uniqs []mutator.Instance
}

// Craft runs the crafting pipeline: admission, slot and resource
// validation, tier computation, consumption, then mint and commit.
// Any failure before the consumption step leaves no state change;
// consumption itself is one atomic batch.
func (e *Engine) Craft(ctx context.Context, req CraftRequest) (*CraftResult, error) {
	ctx, err := e.enter(ctx)
	if err != nil {
		return nil, err
	}
	if req.Caller == "" {
		return nil, ErrEmptyCaller
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.items[req.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, req.ItemID)
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: zero", ErrBadAmount)
	}
	if it.Kind == blueprint.Unique && req.Amount != 1 {
		return nil, fmt.Errorf("%w: unique items craft one at a time", ErrBadAmount)
	}

	guard, err := e.moduleFor(it)
	if err != nil {
		return nil, err
	}

	// Admission. The module sees leniently resolved instances; strict
	// validation only happens when resources are actually required.
	vars, uniqs := e.resolveLenientLocked(req)
	requires := true
	if guard != nil {
		verdict, aerr := guard.OnCraft(ctx, mutator.CraftRequest{
			Crafter:     req.Caller,
			ItemID:      req.ItemID,
			Amount:      req.Amount,
			Variable:    vars,
			UniqueItems: uniqs,
			Aux:         req.Aux,
		})
		if aerr != nil {
			return nil, fmt.Errorf("craft admission: %w", aerr)
		}
		if !verdict.Allowed {
			return nil, ErrCraftVetoed
		}
		requires = verdict.RequiresResources
	}
	free := !requires

	var plan *consumePlan
	if requires {
		plan, err = e.planLocked(it, req)
		if err != nil {
			return nil, err
		}
		vars, uniqs = plan.vars, plan.uniqs
	}

	// Identity and tier come before consumption. Tier computation is
	// read-only, so an out-of-range tier aborts with nothing spent.
	var (
		serial     uint64
		mintID     *uint256.Int
		tier       uint8
		entries    []trait.Entry
		commitment string
	)
	if it.Kind == blueprint.Unique {
		serial = e.serials[req.ItemID] + 1
		mintID = token.Unique(req.ItemID, serial)
		entries = append([]trait.Entry(nil), it.DefaultTraits...)
		if guard != nil {
			payment := uint256.NewInt(0)
			if plan != nil {
				payment = plan.cost
			}
			res, terr := guard.CalculateTier(ctx, mutator.TierRequest{
				ItemID:      req.ItemID,
				Variable:    vars,
				UniqueItems: uniqs,
				BaseTraits:  append([]trait.Entry(nil), it.DefaultTraits...),
				Payment:     payment,
				Seed:        token.SerialSeed(req.ItemID, serial, req.Caller),
			})
			switch {
			case terr != nil:
				// Survivable failure: the token mints untiered with the
				// publisher defaults.
				e.log.Warn("tier computation failed", "item", req.ItemID, "mutator", it.MutatorID, "err", terr)
			case res.Tier > 7:
				return nil, fmt.Errorf("%w: %d", ErrTierRange, res.Tier)
			default:
				tier = res.Tier
				if res.Traits != nil {
					entries = res.Traits
				}
			}
		}
		var inputs []token.Input
		if plan != nil {
			inputs = plan.inputs
		}
		commitment = token.Commitment(req.ItemID, serial, req.Caller, inputs)
	} else {
		mintID = token.Fungible(req.ItemID)
		amt := uint256.NewInt(req.Amount)
		if _, overflow := new(uint256.Int).AddOverflow(e.ledger.TotalSupply(mintID), amt); overflow {
			return nil, fmt.Errorf("%w: item %d", ErrSupplyOverflow, req.ItemID)
		}
	}

	if plan != nil {
		if err := e.consumeLocked(ctx, req.Caller, it, plan); err != nil {
			return nil, err
		}
	}

	mintAmount := uint256.NewInt(1)
	if it.Kind == blueprint.Fungible {
		mintAmount = uint256.NewInt(req.Amount)
	}
	if err := e.ledger.Mint(req.Caller, mintID, mintAmount); err != nil {
		return nil, err
	}

	var inputs []token.Input
	if plan != nil {
		inputs = plan.inputs
	}
	result := &CraftResult{
		ItemID:  req.ItemID,
		Kind:    it.Kind,
		TokenID: new(uint256.Int).Set(mintID),
		Tier:    tier,
		Inputs:  token.CloneInputs(inputs),
		Free:    free,
	}

	stream := journal.ItemStream(req.ItemID)
	if it.Kind == blueprint.Unique {
		st := &tokenState{
			ID:         new(uint256.Int).Set(mintID),
			ItemType:   req.ItemID,
			Serial:     serial,
			Tier:       tier,
			Traits:     trait.FromEntries(entries),
			Inputs:     token.CloneInputs(inputs),
			Commitment: commitment,
		}
		e.tokens[*mintID] = st
		e.serials[req.ItemID] = serial
		e.index.NoteCrafted(req.ItemID, 1)
		result.Serial = serial
		result.Traits = trait.CloneEntries(st.Traits.All())
		result.Commitment = commitment
		stream = journal.TokenStream(mintID)
	} else {
		e.index.NoteCrafted(req.ItemID, req.Amount)
	}

	e.appendEvent(ctx, stream, journal.EventCrafted, req.Caller, journal.CraftData{
		ItemID:     req.ItemID,
		Crafter:    req.Caller,
		Amount:     req.Amount,
		TokenID:    token.Format(mintID),
		Serial:     serial,
		Tier:       tier,
		Commitment: commitment,
		Inputs:     result.Inputs,
		Free:       free,
	})
	e.log.Debug("craft committed",
		"item", req.ItemID, "crafter", req.Caller,
		"token", token.Format(mintID), "tier", tier, "free", free)
	return result, nil
}

// resolveLenientLocked builds module-facing instance views on a best
// effort basis, for the admission hook. Identities that do not resolve
// stay bare; strict resolution happens during planning.
func (e *Engine) resolveLenientLocked(req CraftRequest) (vars, uniqs []mutator.Instance) {
	for _, id := range req.Variable {
		if id == nil {
			continue
		}
		inst := mutator.Instance{ID: new(uint256.Int).Set(id)}
		if props, ok := e.atoms.Props(id); ok {
			inst.Props = props.All()
		}
		vars = append(vars, inst)
	}
	for _, id := range req.Unique {
		if id == nil {
			continue
		}
		inst := mutator.Instance{ID: new(uint256.Int).Set(id)}
		if st, ok := e.tokens[*id]; ok && !st.Destroyed {
			inst.ItemType = st.ItemType
			inst.Tier = st.Tier
			inst.Props = st.Traits.All()
		}
		uniqs = append(uniqs, inst)
	}
	return vars, uniqs
}

// planLocked validates every blueprint line against the caller's
// holdings and builds the consumption plan. Nothing is spent here.
func (e *Engine) planLocked(it *blueprint.ItemType, req CraftRequest) (*consumePlan, error) {
	wantVar, wantUniq := it.InstanceSlots()
	if uint64(len(req.Variable)) != uint64(wantVar)*req.Amount {
		return nil, fmt.Errorf("%w: %d variable instances for %d slots",
			ErrSlotCount, len(req.Variable), uint64(wantVar)*req.Amount)
	}
	if uint64(len(req.Unique)) != uint64(wantUniq)*req.Amount {
		return nil, fmt.Errorf("%w: %d unique instances for %d slots",
			ErrSlotCount, len(req.Unique), uint64(wantUniq)*req.Amount)
	}

	cost, overflow := new(uint256.Int).MulOverflow(it.CostAmount(), uint256.NewInt(req.Amount))
	if overflow {
		return nil, fmt.Errorf("%w: cost overflow", ErrBadAmount)
	}
	plan := &consumePlan{cost: cost}
	need := make(map[uint256.Int]*uint256.Int)
	addLine := func(id *uint256.Int, amount uint64) {
		cp := new(uint256.Int).Set(id)
		amt := uint256.NewInt(amount)
		plan.inputs = append(plan.inputs, token.Input{ID: cp, Amount: amount})
		plan.burnIDs = append(plan.burnIDs, cp)
		plan.burnAmounts = append(plan.burnAmounts, amt)
		sum, ok := need[*id]
		if !ok {
			sum = uint256.NewInt(0)
			need[*id] = sum
		}
		sum.Add(sum, amt)
	}

	vi, ui := 0, 0
	for i, c := range it.Components {
		switch c.Kind {
		case blueprint.FixedAtom, blueprint.FixedItem:
			hi, total := bits.Mul64(c.Amount, req.Amount)
			if hi != 0 {
				return nil, fmt.Errorf("%w: component %d amount overflow", ErrBadAmount, i)
			}
			addLine(c.Target, total)

		case blueprint.VariableAtom:
			id := req.Variable[vi]
			vi++
			if id == nil {
				return nil, fmt.Errorf("%w: nil variable instance", ErrUnknownAtom)
			}
			props, ok := e.atoms.Props(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAtom, id.Dec())
			}
			if err := criteria.Check(props, c.Criteria); err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			plan.vars = append(plan.vars, mutator.Instance{
				ID:    new(uint256.Int).Set(id),
				Props: props.All(),
			})
			addLine(id, 1)

		case blueprint.UniqueItem:
			id := req.Unique[ui]
			ui++
			if id == nil || !token.IsUnique(id) {
				return nil, fmt.Errorf("%w: component %d input", ErrNotUnique, i)
			}
			st, ok := e.tokens[*id]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, token.Format(id))
			}
			if st.Destroyed {
				return nil, fmt.Errorf("%w: %s", ErrDestroyed, token.Format(id))
			}
			if c.Target != nil && !c.Target.IsZero() {
				if !c.Target.IsUint64() || c.Target.Uint64() != st.ItemType {
					return nil, fmt.Errorf("%w: component %d wants item %s, token is from %d",
						ErrWrongOrigin, i, c.Target.Dec(), st.ItemType)
				}
			}
			if min, ok := criteria.MinTier(c.Criteria); ok && st.Tier < min {
				return nil, fmt.Errorf("%w: component %d needs tier %d, token is tier %d",
					ErrTierTooLow, i, min, st.Tier)
			}
			plan.uniqs = append(plan.uniqs, mutator.Instance{
				ID:       new(uint256.Int).Set(id),
				ItemType: st.ItemType,
				Tier:     st.Tier,
				Props:    st.Traits.All(),
			})
			plan.consumedTokens = append(plan.consumedTokens, st)
			addLine(id, 1)
		}
	}

	// Balances are checked on per-identity sums, so an instance (or a
	// fixed target) supplied twice must be covered twice. The fee joins
	// the sum under the currency identity: a blueprint line drawing on
	// the payment currency and the cost settle from one balance.
	if !plan.cost.IsZero() {
		sum, ok := need[*e.currency]
		if !ok {
			sum = uint256.NewInt(0)
			need[*e.currency] = sum
		}
		if _, over := sum.AddOverflow(sum, plan.cost); over {
			return nil, fmt.Errorf("%w: component and cost totals overflow", ErrBadAmount)
		}
	}
	for key, total := range need {
		id := key
		if e.ledger.BalanceOf(req.Caller, &id).Lt(total) {
			return nil, fmt.Errorf("%w: id %s needs %s", ErrMissingResource, token.Format(&id), total.Dec())
		}
	}
	return plan, nil
}

// consumeLocked executes a validated plan: one atomic burn batch, the
// fee transfer, and retirement of consumed unique ingredients.
func (e *Engine) consumeLocked(ctx context.Context, caller string, it *blueprint.ItemType, plan *consumePlan) error {
	if len(plan.burnIDs) > 0 {
		if err := e.ledger.BurnBatch(caller, plan.burnIDs, plan.burnAmounts); err != nil {
			return err
		}
	}
	if !plan.cost.IsZero() {
		if err := e.ledger.Transfer(caller, it.FeeRecipient, e.currency, plan.cost); err != nil {
			return err
		}
	}
	for _, st := range plan.consumedTokens {
		st.Destroyed = true
		e.index.NoteDestroyed(st.ItemType)
		e.appendEvent(ctx, journal.TokenStream(st.ID), journal.EventDestroyed, caller, journal.ConsumeData{
			TokenID: token.Format(st.ID),
			Owner:   caller,
			Caller:  caller,
			Amount:  1,
		})
	}
	return nil
}
