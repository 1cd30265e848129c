package launch

import (
	"context"
	"fmt"
	"slices"

	"github.com/g960059/tiledash/internal/model"
)

type Resolver struct {
	logger     ActivationLogger
	callerUser model.UserHandle
	packages   PackageIndex
	profiles   ProfileDirectory
}

type Option func(*Resolver)

func WithPackageIndex(idx PackageIndex) Option {
	return func(r *Resolver) { r.packages = idx }
}

func WithProfileDirectory(dir ProfileDirectory) Option {
	return func(r *Resolver) { r.profiles = dir }
}

// NewResolver builds a resolver acting on behalf of callerUser. Pass model.NoUser when
// the caller's own user is unknown; tiles without eligible users then launch Direct.
func NewResolver(logger ActivationLogger, callerUser model.UserHandle, opts ...Option) *Resolver {
	r := &Resolver{logger: logger, callerUser: callerUser}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the launch plan for t using the already synthesized intent.
func (r *Resolver) Resolve(t model.Tile, intent *model.Intent) Plan {
	if intent == nil || (!intent.HasComponent() && intent.Action == "") {
		return NoOp{Err: fmt.Errorf("tile %q: %w", t.Title, ErrUnresolvableComponent)}
	}
	if r.packages != nil && intent.HasComponent() && !r.packages.Installed(intent.Component.Package) {
		return NoOp{Err: fmt.Errorf("package %s: %w", intent.Component.Package, ErrUnresolvableComponent)}
	}
	launchIntent := intent.Clone()

	candidates := r.candidates(t)
	if len(t.UserHandles) > 0 && len(candidates) == 0 {
		return NoOp{Err: fmt.Errorf("tile %q: %w", t.Title, ErrNoEligibleUser)}
	}
	switch len(candidates) {
	case 0:
		return Direct{Intent: launchIntent}
	case 1:
		return AsUser{Intent: launchIntent, User: candidates[0]}
	default:
		return ChooseProfile{
			Tile:       t.WithUserHandles(candidates...),
			Intent:     launchIntent,
			Candidates: candidates,
		}
	}
}

func (r *Resolver) candidates(t model.Tile) []model.UserHandle {
	if len(t.UserHandles) == 0 {
		if r.callerUser == model.NoUser {
			return nil
		}
		return []model.UserHandle{r.callerUser}
	}
	out := make([]model.UserHandle, 0, len(t.UserHandles))
	for _, u := range t.UserHandles {
		if r.profiles != nil && !r.profiles.Exists(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ReportDispatched records a successfully dispatched Direct or AsUser plan.
// Other plans and intents without a component are not recorded.
func (r *Resolver) ReportDispatched(p Plan) {
	var intent model.Intent
	switch plan := p.(type) {
	case Direct:
		intent = plan.Intent
	case AsUser:
		intent = plan.Intent
	default:
		return
	}
	if !intent.HasComponent() || r.logger == nil {
		return
	}
	r.record(intent.Component.Flatten())
}

func (r *Resolver) record(component string) {
	defer func() {
		_ = recover()
	}()
	r.logger.RecordLaunch(component)
}

// Outcome is where a Launch interaction stopped.
type Outcome struct {
	State State
	Plan  Plan
}

// Launch resolves t and drives the interaction until it is dispatched, fails, or
// stops at profile selection. A nil selector, or one that abandons, leaves the
// interaction in StateChooseProfile. Launcher errors are returned as-is and not recorded.
func (r *Resolver) Launch(ctx context.Context, t model.Tile, intent *model.Intent, launcher Launcher, selector ProfileSelector) (Outcome, error) {
	state, err := advance(StateIdle, StateResolving)
	if err != nil {
		return Outcome{State: StateIdle}, err
	}
	plan := r.Resolve(t, intent)
	if state, err = advance(state, stateForPlan(plan)); err != nil {
		return Outcome{State: state, Plan: plan}, err
	}

	if choose, ok := plan.(ChooseProfile); ok {
		if selector == nil {
			return Outcome{State: state, Plan: plan}, nil
		}
		selected, ok, err := selector.Present(ctx, slices.Clone(choose.Candidates))
		if err != nil {
			return Outcome{State: state, Plan: plan}, fmt.Errorf("present profiles: %w", err)
		}
		if !ok {
			return Outcome{State: state, Plan: plan}, nil
		}
		if !slices.Contains(choose.Candidates, selected) {
			return Outcome{State: state, Plan: plan}, fmt.Errorf("user %d: %w", selected, ErrInvalidSelection)
		}
		if state, err = advance(state, StateResolving); err != nil {
			return Outcome{State: state, Plan: plan}, err
		}
		plan = r.Resolve(choose.Tile.WithUserHandles(selected), intent)
		if state, err = advance(state, stateForPlan(plan)); err != nil {
			return Outcome{State: state, Plan: plan}, err
		}
	}

	if noop, ok := plan.(NoOp); ok {
		return Outcome{State: state, Plan: plan}, noop.Err
	}
	if launcher == nil {
		return Outcome{State: state, Plan: plan}, fmt.Errorf("launcher is required")
	}
	if err := launcher.Start(ctx, plan); err != nil {
		return Outcome{State: state, Plan: plan}, fmt.Errorf("dispatch %s: %w", plan.Kind(), err)
	}
	if state, err = advance(state, StateDispatched); err != nil {
		return Outcome{State: state, Plan: plan}, err
	}
	r.ReportDispatched(plan)
	return Outcome{State: state, Plan: plan}, nil
}

// Activation is the launch capability bound to one display item.
type Activation struct {
	resolver *Resolver
	tile     model.Tile
	intent   model.Intent
}

func NewActivation(resolver *Resolver, t model.Tile, intent model.Intent) *Activation {
	return &Activation{resolver: resolver, tile: t.Clone(), intent: intent.Clone()}
}

// Intent returns a copy of the intent that will be launched.
func (a *Activation) Intent() model.Intent {
	return a.intent.Clone()
}

func (a *Activation) Plan() Plan {
	intent := a.intent.Clone()
	return a.resolver.Resolve(a.tile, &intent)
}

func (a *Activation) Activate(ctx context.Context, launcher Launcher, selector ProfileSelector) (Outcome, error) {
	intent := a.intent.Clone()
	return a.resolver.Launch(ctx, a.tile, &intent, launcher, selector)
}
