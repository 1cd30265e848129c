package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/g960059/tiledash/internal/launch"
	"github.com/g960059/tiledash/internal/model"
	"github.com/g960059/tiledash/internal/tile"
)

// Provider wires an EntrySource to the binder and launch resolver.
type Provider struct {
	source            EntrySource
	binder            *tile.Binder
	resolver          *launch.Resolver
	logger            *log.Logger
	extraIntentAction string
}

type ProviderOption func(*Provider)

func WithLogger(l *log.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithExtraIntentAction(action string) ProviderOption {
	return func(p *Provider) { p.extraIntentAction = action }
}

func NewProvider(source EntrySource, resolver *launch.Resolver, opts ...ProviderOption) *Provider {
	p := &Provider{
		source:   source,
		binder:   tile.NewBinder(resolver),
		resolver: resolver,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Enabled() bool {
	return true
}

// ExtraIntentAction is the additional intent action used when scanning for tiles.
func (p *Provider) ExtraIntentAction() string {
	return p.extraIntentAction
}

func (p *Provider) TilesForCategory(ctx context.Context, key string) ([]model.Tile, error) {
	return p.source.Tiles(ctx, key)
}

func (p *Provider) Categories(ctx context.Context) ([]model.Category, error) {
	return p.source.Categories(ctx)
}

// ItemsForCategory binds every tile of a category with the default base order. It
// returns nil for an empty category and skips tiles that have no usable key.
func (p *Provider) ItemsForCategory(ctx context.Context, key, callerPackage string) ([]tile.DisplayItem, error) {
	return p.BindCategory(ctx, key, tile.DefaultOrder, callerPackage)
}

// BindCategory is ItemsForCategory with an explicit base order for externally declared tiles.
func (p *Provider) BindCategory(ctx context.Context, key string, baseOrder int, callerPackage string) ([]tile.DisplayItem, error) {
	if !p.Enabled() {
		return nil, nil
	}
	tiles, err := p.source.Tiles(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("tiles for %s: %w", key, err)
	}
	if len(tiles) == 0 {
		p.logger.Printf("tile list is empty, skipping category %s", key)
		return nil, nil
	}
	items := make([]tile.DisplayItem, 0, len(tiles))
	for _, t := range tiles {
		item, err := p.binder.Bind(t, "", baseOrder, callerPackage)
		if errors.Is(err, tile.ErrMissingDestination) {
			p.logger.Printf("skipping tile in %s: %v", key, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindTile returns the tile of a category whose resolved key is key. Later tiles
// shadow earlier ones with the same key.
func (p *Provider) FindTile(ctx context.Context, categoryKey, key string) (model.Tile, bool, error) {
	tiles, err := p.TilesForCategory(ctx, categoryKey)
	if err != nil {
		return model.Tile{}, false, fmt.Errorf("tiles for %s: %w", categoryKey, err)
	}
	var (
		found model.Tile
		ok    bool
	)
	for _, t := range tiles {
		if resolved, err := tile.ResolveKey(t); err == nil && resolved == key {
			found, ok = t, true
		}
	}
	return found, ok, nil
}

// OpenTile launches t as a top-level screen. A nil tile opens the settings home
// screen; a tile without an intent does nothing.
func (p *Provider) OpenTile(ctx context.Context, t *model.Tile, launcher launch.Launcher, selector launch.ProfileSelector) (launch.Outcome, error) {
	if launcher == nil {
		return launch.Outcome{State: launch.StateIdle}, fmt.Errorf("launcher is required")
	}
	if t == nil {
		plan := launch.Direct{Intent: model.Intent{Action: model.ActionSettings, Flags: model.FlagClearTask}}
		if err := launcher.Start(ctx, plan); err != nil {
			return launch.Outcome{State: launch.StateDirect, Plan: plan}, fmt.Errorf("open settings home: %w", err)
		}
		return launch.Outcome{State: launch.StateDispatched, Plan: plan}, nil
	}
	if t.Intent == nil {
		return launch.Outcome{State: launch.StateIdle}, nil
	}
	intent := t.Intent.WithExtra(model.ExtraShowMenu, "true")
	if t.IntentAction != "" {
		intent.Action = t.IntentAction
	}
	intent.Flags |= model.FlagClearTask
	return p.resolver.Launch(ctx, *t, &intent, launcher, selector)
}
