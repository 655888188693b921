package mutator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

// Script hosts a publisher-supplied ECMAScript module. The module
// defines any subset of the global functions
//
//	calculateTier(req) -> {tier, traits}
//	onCraft(req)       -> {allowed, requiresResources} | bool
//	onItemUse(req)     -> {traits, destroy}
//	onTransfer(req)    -> bool | {allowed}
//
// Each invocation runs in a fresh runtime, so one call cannot leave
// state behind for the next. An undefined function means the module
// does not care about that hook; calculateTier is the exception, since
// a module that is referenced for tier computation but does not define
// it is broken.
type Script struct {
	id   string
	prog *goja.Program
}

// CompileScript compiles module source. Compilation failures are
// definitional: callers should refuse to register the module.
func CompileScript(id, src string) (*Script, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	prog, err := goja.Compile(id, src, true)
	if err != nil {
		return nil, fmt.Errorf("mutator: compile %s: %w", id, err)
	}
	return &Script{id: id, prog: prog}, nil
}

// ID returns the module id.
func (s *Script) ID() string { return s.id }

func (s *Script) CalculateTier(ctx context.Context, req TierRequest) (TierResult, error) {
	arg := map[string]interface{}{
		"itemId":      req.ItemID,
		"variable":    instancesToJS(req.Variable),
		"uniqueItems": instancesToJS(req.UniqueItems),
		"baseTraits":  traitsToJS(req.BaseTraits),
		"payment":     paymentToJS(req.Payment),
		"seed":        req.Seed,
	}
	res, defined, err := s.call(ctx, "calculateTier", arg)
	if err != nil {
		return TierResult{}, err
	}
	if !defined {
		return TierResult{}, fmt.Errorf("%w: %s does not define calculateTier", ErrBadResult, s.id)
	}
	return tierResultFromJS(res)
}

func (s *Script) OnCraft(ctx context.Context, req CraftRequest) (CraftResult, error) {
	arg := map[string]interface{}{
		"crafter":     req.Crafter,
		"itemId":      req.ItemID,
		"amount":      req.Amount,
		"variable":    instancesToJS(req.Variable),
		"uniqueItems": instancesToJS(req.UniqueItems),
		"aux":         auxToJS(req.Aux),
	}
	res, defined, err := s.call(ctx, "onCraft", arg)
	if err != nil {
		return CraftResult{}, err
	}
	if !defined {
		return CraftResult{Allowed: true, RequiresResources: true}, nil
	}
	return craftResultFromJS(res)
}

func (s *Script) OnItemUse(ctx context.Context, req UseRequest) (UseResult, error) {
	arg := map[string]interface{}{
		"tokenId":       idToJS(req.TokenID),
		"itemId":        req.ItemID,
		"owner":         req.Owner,
		"tier":          req.Tier,
		"currentTraits": traitsToJS(req.CurrentTraits),
		"aux":           auxToJS(req.Aux),
	}
	res, defined, err := s.call(ctx, "onItemUse", arg)
	if err != nil {
		return UseResult{}, err
	}
	if !defined {
		return UseResult{}, nil
	}
	return useResultFromJS(res)
}

func (s *Script) OnTransfer(ctx context.Context, req TransferRequest) (bool, error) {
	arg := map[string]interface{}{
		"tokenId":       idToJS(req.TokenID),
		"itemId":        req.ItemID,
		"from":          req.From,
		"to":            req.To,
		"amount":        paymentToJS(req.Amount),
		"currentTraits": traitsToJS(req.CurrentTraits),
	}
	res, defined, err := s.call(ctx, "onTransfer", arg)
	if err != nil {
		return false, err
	}
	if !defined {
		return true, nil
	}
	return allowedFromJS(res)
}

// call runs the program in a fresh runtime and invokes fname with arg.
// defined=false means the module does not declare fname.
func (s *Script) call(ctx context.Context, fname string, arg map[string]interface{}) (interface{}, bool, error) {
	rt := goja.New()

	rt.Set("log", func(x goja.Value) {
		slog.Debug("mutator script log", "module", s.id, "msg", fmt.Sprintf("%v", x.Export()))
	})

	// The watchdog interrupts the runtime as soon as the context is
	// done. If we cancel after the call returns, the late interrupt
	// lands on a runtime nobody will use again.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		rt.Interrupt(InterruptedMessage)
	}()
	defer cancel()

	if _, err := rt.RunProgram(s.prog); err != nil {
		return nil, false, s.wrapErr(err)
	}

	fnv := rt.Get(fname)
	if fnv == nil || goja.IsUndefined(fnv) || goja.IsNull(fnv) {
		return nil, false, nil
	}
	fn, ok := goja.AssertFunction(fnv)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s.%s is not a function", ErrBadResult, s.id, fname)
	}

	v, err := fn(goja.Undefined(), rt.ToValue(arg))
	if err != nil {
		return nil, false, s.wrapErr(err)
	}
	return v.Export(), true, nil
}

func (s *Script) wrapErr(err error) error {
	if _, is := err.(*goja.InterruptedError); is {
		return Interrupted
	}
	return fmt.Errorf("mutator: %s: %w", s.id, err)
}

// CompileFromManifest builds and registers scripts from manifest
// entries of (id, source) pairs.
func CompileFromManifest(reg *Registry, scripts map[string]string) error {
	for id, src := range scripts {
		script, err := CompileScript(id, src)
		if err != nil {
			return err
		}
		if err := reg.Register(id, script); err != nil {
			return err
		}
	}
	return nil
}

func auxToJS(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var x interface{}
	if err := json.Unmarshal(raw, &x); err != nil {
		return string(raw)
	}
	return x
}
