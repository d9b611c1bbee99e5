package storagenode

import (
	"context"
	"testing"

	"resonance-server/internal/shared/errors"
)

func node(name string, worldX, worldY, worldZ int, x, y, z float64) StorageNode {
	return StorageNode{Name: name, WorldX: worldX, WorldY: worldY, WorldZ: worldZ, X: x, Y: y, Z: z}
}

func TestValidatePlacement_FarEnough(t *testing.T) {
	v := NewMinSeparationValidator(5.0)
	existing := []StorageNode{node("alpha", 0, 0, 0, 0, 0, 0)}

	err := v.ValidatePlacement(context.Background(), Placement{X: 5.0}, existing)
	if err != nil {
		t.Fatalf("expected placement at exactly the minimum distance to pass, got %v", err)
	}
}

func TestValidatePlacement_TooClose(t *testing.T) {
	v := NewMinSeparationValidator(5.0)
	existing := []StorageNode{node("alpha", 0, 0, 0, 0, 0, 0)}

	err := v.ValidatePlacement(context.Background(), Placement{X: 3.0, Y: 3.0}, existing)
	if err == nil {
		t.Fatalf("expected placement inside the separation radius to fail")
	}
	if errors.GetType(err) != errors.ErrorTypeValidation {
		t.Fatalf("expected validation error, got %v", errors.GetType(err))
	}
}

func TestValidatePlacement_IgnoresOtherWorlds(t *testing.T) {
	v := NewMinSeparationValidator(5.0)
	existing := []StorageNode{node("alpha", 1, 0, 0, 0, 0, 0)}

	err := v.ValidatePlacement(context.Background(), Placement{WorldX: 0, X: 0.1}, existing)
	if err != nil {
		t.Fatalf("expected nodes in other worlds to be ignored, got %v", err)
	}
}

func TestValidatePlacement_ChecksEveryAxis(t *testing.T) {
	v := NewMinSeparationValidator(5.0)
	existing := []StorageNode{node("alpha", 0, 0, 0, 10, 10, 10)}

	err := v.ValidatePlacement(context.Background(), Placement{X: 10, Y: 10, Z: 12}, existing)
	if err == nil {
		t.Fatalf("expected separation on the z axis alone to be insufficient")
	}
}

func TestValidatePlacement_NoExistingNodes(t *testing.T) {
	v := NewMinSeparationValidator(5.0)

	if err := v.ValidatePlacement(context.Background(), Placement{}, nil); err != nil {
		t.Fatalf("expected first placement to always pass, got %v", err)
	}
}
