package tile

import (
	"errors"
	"fmt"

	"github.com/g960059/tiledash/internal/model"
)

const keyPrefix = "dashboard_tile_pref_"

var ErrMissingDestination = errors.New("missing destination")

// ResolveKey returns the tile's declared key, or derives one from the intent component.
// Duplicate declared keys are not detected; the later tile shadows the earlier one in keyed lookups.
func ResolveKey(t model.Tile) (string, error) {
	if t.Key != "" {
		return t.Key, nil
	}
	if t.Intent == nil || !t.Intent.HasComponent() {
		return "", fmt.Errorf("tile %q: %w", t.Title, ErrMissingDestination)
	}
	return keyPrefix + t.Intent.Component.ClassName(), nil
}
