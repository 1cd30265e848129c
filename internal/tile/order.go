package tile

import (
	"math"

	"github.com/g960059/tiledash/internal/model"
)

const (
	// DefaultOrder is the base order meaning "no offset".
	DefaultOrder = math.MaxInt32
	// OrderUnset is returned for zero-priority tiles; callers keep their insertion order.
	OrderUnset = DefaultOrder
)

// ComputeOrder maps declared priority (larger = more important) onto ascending display order.
func ComputeOrder(t model.Tile, baseOrder int, callerPackage string) int {
	if t.Priority == 0 {
		return OrderUnset
	}
	// Action-only intents have no package and never take the same-package path.
	samePackage := false
	if t.Intent != nil {
		if pkg := t.Intent.ComponentPackage(); pkg != "" {
			samePackage = pkg == callerPackage
		}
	}
	if samePackage || baseOrder == DefaultOrder {
		return -t.Priority
	}
	return -t.Priority + baseOrder
}

// PriorityGroup buckets an order into groups of 100.
func PriorityGroup(order int) int {
	return order / 100
}
