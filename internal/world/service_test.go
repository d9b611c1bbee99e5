package world

import (
	"math"
	"testing"

	"resonance-server/internal/packet"
)

func TestSeedWorlds_CoreAndSixNeighbors(t *testing.T) {
	worlds := seedWorlds()

	if len(worlds) != 7 {
		t.Fatalf("expected 7 seeded worlds, got %d", len(worlds))
	}

	core := worlds[0]
	if core.X != 0 || core.Y != 0 || core.Z != 0 {
		t.Fatalf("expected the core world at the origin, got (%d, %d, %d)", core.X, core.Y, core.Z)
	}
	if core.Kind != WorldKindCenter || core.Shell != 0 {
		t.Fatalf("expected core world kind center on shell 0, got %s/%d", core.Kind, core.Shell)
	}

	seen := map[[3]int]bool{}
	for _, w := range worlds {
		key := [3]int{w.X, w.Y, w.Z}
		if seen[key] {
			t.Fatalf("duplicate world at (%d, %d, %d)", w.X, w.Y, w.Z)
		}
		seen[key] = true
	}

	for _, w := range worlds[1:] {
		if w.Kind != WorldKindStandard || w.Shell != 1 {
			t.Fatalf("expected neighbor %q on shell 1, got %s/%d", w.Name, w.Kind, w.Shell)
		}
		manhattan := abs(w.X) + abs(w.Y) + abs(w.Z)
		if manhattan != 1 {
			t.Fatalf("expected neighbor %q adjacent to the core, got (%d, %d, %d)", w.Name, w.X, w.Y, w.Z)
		}
	}
}

func TestRandomOrbSeed_Invariants(t *testing.T) {
	const radius = 40.0
	const units = 50

	for i := 0; i < 100; i++ {
		seed := randomOrbSeed(radius, units)

		if packet.Total(seed.Composition) != units {
			t.Fatalf("expected composition to hold %d units, got %d", units, packet.Total(seed.Composition))
		}
		if len(seed.Composition) < 1 || len(seed.Composition) > 3 {
			t.Fatalf("expected 1 to 3 entries, got %d", len(seed.Composition))
		}

		spread := radius * 0.75
		for _, axis := range []float64{seed.X, seed.Y, seed.Z} {
			if axis < -spread || axis > spread {
				t.Fatalf("expected scatter within ±%v, got %v", spread, axis)
			}
		}

		for _, p := range seed.Composition {
			if p.Count == 0 {
				t.Fatalf("expected no zero-count entries, got %+v", seed.Composition)
			}
			if p.Frequency < 0 || p.Frequency >= 2*math.Pi {
				t.Fatalf("expected frequency in [0, 2π), got %v", p.Frequency)
			}
			if p.Amplitude < 0.1 || p.Amplitude > 1.0 {
				t.Fatalf("expected amplitude in [0.1, 1.0], got %v", p.Amplitude)
			}
			if p.Phase < 0 || p.Phase >= 2*math.Pi {
				t.Fatalf("expected phase in [0, 2π), got %v", p.Phase)
			}
		}
	}
}

func TestRandomOrbSeed_SmallCounts(t *testing.T) {
	for i := 0; i < 50; i++ {
		seed := randomOrbSeed(40.0, 1)

		if packet.Total(seed.Composition) != 1 {
			t.Fatalf("expected a single unit to survive splitting, got %d", packet.Total(seed.Composition))
		}
		for _, p := range seed.Composition {
			if p.Count == 0 {
				t.Fatalf("expected zero-count entries to be skipped")
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
