package mutator

import (
	"context"
	"fmt"
	"time"
)

// DefaultBudget bounds one module call. Modules are untrusted; a call
// that overruns its budget is interrupted rather than trusted to
// return.
const DefaultBudget = 250 * time.Millisecond

// Guard wraps a module so that panics become errors and every call
// carries a deadline. The core only ever invokes modules through a
// Guard.
type Guard struct {
	inner  Mutator
	budget time.Duration
}

// Guarded wraps m. A zero budget applies DefaultBudget.
func Guarded(m Mutator, budget time.Duration) *Guard {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Guard{inner: m, budget: budget}
}

func (g *Guard) CalculateTier(ctx context.Context, req TierRequest) (res TierResult, err error) {
	defer recoverTo(&err)
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()
	return g.inner.CalculateTier(ctx, req)
}

func (g *Guard) OnCraft(ctx context.Context, req CraftRequest) (res CraftResult, err error) {
	defer recoverTo(&err)
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()
	return g.inner.OnCraft(ctx, req)
}

func (g *Guard) OnItemUse(ctx context.Context, req UseRequest) (res UseResult, err error) {
	defer recoverTo(&err)
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()
	return g.inner.OnItemUse(ctx, req)
}

func (g *Guard) OnTransfer(ctx context.Context, req TransferRequest) (allowed bool, err error) {
	defer recoverTo(&err)
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()
	return g.inner.OnTransfer(ctx, req)
}

func recoverTo(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}
