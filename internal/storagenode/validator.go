package storagenode

import (
	"context"
	"math"

	"resonance-server/internal/shared/errors"
)

// PlacementValidator decides whether a storage node may be placed at a
// candidate position. The world geometry lives outside this server, so
// the check is pluggable; the default only knows about the owner's
// other nodes.
type PlacementValidator interface {
	ValidatePlacement(ctx context.Context, candidate Placement, existing []StorageNode) error
}

type minSeparationValidator struct {
	minDistance float64
}

// NewMinSeparationValidator builds the default validator: a candidate
// must keep at least minDistance to every node the owner already has in
// the same world.
func NewMinSeparationValidator(minDistance float64) PlacementValidator {
	return &minSeparationValidator{minDistance: minDistance}
}

func (v *minSeparationValidator) ValidatePlacement(_ context.Context, candidate Placement, existing []StorageNode) error {
	for _, node := range existing {
		if node.WorldX != candidate.WorldX || node.WorldY != candidate.WorldY || node.WorldZ != candidate.WorldZ {
			continue
		}
		dx := node.X - candidate.X
		dy := node.Y - candidate.Y
		dz := node.Z - candidate.Z
		if math.Sqrt(dx*dx+dy*dy+dz*dz) < v.minDistance {
			return errors.Validationf("placement is too close to storage node %q", node.Name)
		}
	}
	return nil
}
