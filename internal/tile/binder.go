package tile

import (
	"github.com/g960059/tiledash/internal/launch"
	"github.com/g960059/tiledash/internal/model"
)

type ItemKind string

const (
	ItemInert    ItemKind = "none"
	ItemNavigate ItemKind = "navigate"
	ItemLaunch   ItemKind = "launch"
)

// DisplayItem is the renderer-facing projection of a tile. Key is the diffing identity.
type DisplayItem struct {
	Key      string
	Order    int
	Title    string
	Summary  string
	Icon     string
	Kind     ItemKind
	Fragment string
	Launch   *launch.Activation
}

type Binder struct {
	resolver *launch.Resolver
}

func NewBinder(resolver *launch.Resolver) *Binder {
	return &Binder{resolver: resolver}
}

// Bind projects t onto a DisplayItem. overrideKey replaces the resolved key when non-empty.
func (b *Binder) Bind(t model.Tile, overrideKey string, baseOrder int, callerPackage string) (DisplayItem, error) {
	key := overrideKey
	if key == "" {
		resolved, err := ResolveKey(t)
		if err != nil {
			return DisplayItem{}, err
		}
		key = resolved
	}
	item := DisplayItem{
		Key:     key,
		Order:   ComputeOrder(t, baseOrder, callerPackage),
		Title:   t.Title,
		Summary: t.Summary,
		Icon:    t.Icon,
		Kind:    ItemInert,
	}

	switch dest := t.Destination().(type) {
	case model.FragmentNavigate:
		item.Kind = ItemNavigate
		item.Fragment = dest.ClassName
	case model.IntentLaunch:
		intent := dest.Intent
		if t.IntentAction != "" {
			intent.Action = t.IntentAction
		}
		item.Kind = ItemLaunch
		item.Launch = launch.NewActivation(b.resolver, t, intent)
	}
	return item, nil
}
