package launch

import (
	"context"
	"errors"

	"github.com/g960059/tiledash/internal/model"
)

var (
	ErrUnresolvableComponent = errors.New("unresolvable component")
	ErrInvalidSelection      = errors.New("selected user is not a candidate")

	// ErrNoEligibleUser means every user a tile was declared for has been removed.
	ErrNoEligibleUser = errors.New("no eligible user")
)

type PlanKind string

const (
	PlanDirect        PlanKind = "direct"
	PlanAsUser        PlanKind = "as_user"
	PlanChooseProfile PlanKind = "choose_profile"
	PlanNoOp          PlanKind = "noop"
)

// Plan is one of Direct, AsUser, ChooseProfile or NoOp.
type Plan interface {
	Kind() PlanKind
}

type Direct struct {
	Intent model.Intent
}

type AsUser struct {
	Intent model.Intent
	User   model.UserHandle
}

type ChooseProfile struct {
	Tile       model.Tile
	Intent     model.Intent
	Candidates []model.UserHandle
}

type NoOp struct {
	Err error
}

func (Direct) Kind() PlanKind        { return PlanDirect }
func (AsUser) Kind() PlanKind        { return PlanAsUser }
func (ChooseProfile) Kind() PlanKind { return PlanChooseProfile }
func (NoOp) Kind() PlanKind          { return PlanNoOp }

// ActivationLogger receives one record per dispatched launch. Implementations must not block.
type ActivationLogger interface {
	RecordLaunch(component string)
}

// Launcher executes a Direct or AsUser plan on behalf of the caller.
type Launcher interface {
	Start(ctx context.Context, plan Plan) error
}

// ProfileSelector asks the user to pick one of candidates. ok=false means the step was abandoned.
type ProfileSelector interface {
	Present(ctx context.Context, candidates []model.UserHandle) (selected model.UserHandle, ok bool, err error)
}

// PackageIndex reports whether a package is installed.
type PackageIndex interface {
	Installed(pkg string) bool
}

// ProfileDirectory reports whether a user profile still exists.
type ProfileDirectory interface {
	Exists(user model.UserHandle) bool
}

type LauncherFunc func(ctx context.Context, plan Plan) error

func (f LauncherFunc) Start(ctx context.Context, plan Plan) error { return f(ctx, plan) }

type SelectorFunc func(ctx context.Context, candidates []model.UserHandle) (model.UserHandle, bool, error)

func (f SelectorFunc) Present(ctx context.Context, candidates []model.UserHandle) (model.UserHandle, bool, error) {
	return f(ctx, candidates)
}

type LoggerFunc func(component string)

func (f LoggerFunc) RecordLaunch(component string) { f(component) }
