package packet

import (
	"errors"
	"math"
	"testing"
)

func pkt(frequency, amplitude, phase float64, count uint32) WavePacket {
	return WavePacket{Frequency: frequency, Amplitude: amplitude, Phase: phase, Count: count}
}

func TestMergeable_WithinTolerance(t *testing.T) {
	a := pkt(1.0, 0.5, 0.2, 10)
	b := pkt(1.009, 0.509, 0.209, 3)

	if !Mergeable(a, b) {
		t.Fatalf("expected packets within tolerance to be mergeable")
	}
}

func TestMergeable_BoundaryIsExclusive(t *testing.T) {
	a := pkt(1.0, 0.5, 0.2, 10)
	b := pkt(1.01, 0.5, 0.2, 3)

	if Mergeable(a, b) {
		t.Fatalf("expected exact tolerance distance to remain distinct")
	}
}

func TestMergeable_SingleScalarBreaksMerge(t *testing.T) {
	base := pkt(1.0, 0.5, 0.2, 10)
	cases := []struct {
		name  string
		other WavePacket
	}{
		{"frequency", pkt(1.02, 0.5, 0.2, 1)},
		{"amplitude", pkt(1.0, 0.52, 0.2, 1)},
		{"phase", pkt(1.0, 0.5, 0.22, 1)},
	}

	for _, tc := range cases {
		if Mergeable(base, tc.other) {
			t.Fatalf("expected %s difference to prevent merge", tc.name)
		}
	}
}

func TestConsolidate_MergesAndKeepsFirstScalars(t *testing.T) {
	packets := []WavePacket{
		pkt(1.0, 0.5, 0.2, 10),
		pkt(2.0, 0.5, 0.2, 4),
		pkt(1.005, 0.504, 0.196, 6),
	}

	out := Consolidate(packets)
	if len(out) != 2 {
		t.Fatalf("expected 2 entries after consolidation, got %d", len(out))
	}
	if out[0].Count != 16 {
		t.Fatalf("expected merged count 16, got %d", out[0].Count)
	}
	if out[0].Frequency != 1.0 || out[0].Amplitude != 0.5 || out[0].Phase != 0.2 {
		t.Fatalf("expected first entry scalars to be retained, got %+v", out[0])
	}
}

func TestConsolidate_DropsZeroCounts(t *testing.T) {
	out := Consolidate([]WavePacket{pkt(1.0, 0.5, 0.2, 0), pkt(2.0, 0.5, 0.2, 3)})
	if len(out) != 1 {
		t.Fatalf("expected zero-count entry to be dropped, got %d entries", len(out))
	}
	if out[0].Frequency != 2.0 {
		t.Fatalf("expected surviving entry at frequency 2.0, got %v", out[0].Frequency)
	}
}

func TestTotal_Empty(t *testing.T) {
	if got := Total(nil); got != 0 {
		t.Fatalf("expected empty total 0, got %d", got)
	}
}

func TestAdd_MergesWithinCapacity(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 10)}
	incoming := []WavePacket{pkt(1.002, 0.498, 0.201, 5), pkt(3.0, 0.1, 0.0, 2)}

	out, err := Add(existing, incoming, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[0].Count != 15 {
		t.Fatalf("expected merged count 15, got %d", out[0].Count)
	}
	if Total(out) != 17 {
		t.Fatalf("expected total 17, got %d", Total(out))
	}
}

func TestAdd_AllOrNothingAtCapacity(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 298)}
	incoming := []WavePacket{pkt(1.0, 0.5, 0.2, 5)}

	out, err := Add(existing, incoming, 300)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if Total(out) != 298 {
		t.Fatalf("expected composition unchanged at 298, got %d", Total(out))
	}
	if len(out) != 1 || out[0].Count != 298 {
		t.Fatalf("expected untouched composition, got %+v", out)
	}
}

func TestAdd_ZeroCountIsNoop(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 10)}

	out, err := Add(existing, []WavePacket{pkt(2.0, 0.3, 0.1, 0)}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected zero-count add to create no entry, got %d entries", len(out))
	}
}

func TestAdd_FillsToExactCapacity(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 295)}

	out, err := Add(existing, []WavePacket{pkt(2.0, 0.3, 0.1, 5)}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Total(out) != 300 {
		t.Fatalf("expected total 300, got %d", Total(out))
	}
}

func TestRemove_Exact(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 10), pkt(2.0, 0.3, 0.1, 4)}

	out, err := Remove(existing, []WavePacket{pkt(1.004, 0.496, 0.204, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Frequency != 2.0 {
		t.Fatalf("expected only frequency 2.0 entry to survive, got %+v", out)
	}
}

func TestRemove_InsufficientFailsWholeBatch(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 10), pkt(2.0, 0.3, 0.1, 4)}
	requested := []WavePacket{pkt(1.0, 0.5, 0.2, 3), pkt(2.0, 0.3, 0.1, 5)}

	out, err := Remove(existing, requested)
	if !errors.Is(err, ErrInsufficientPackets) {
		t.Fatalf("expected ErrInsufficientPackets, got %v", err)
	}
	if Total(out) != 14 {
		t.Fatalf("expected composition unchanged at 14 units, got %d", Total(out))
	}
}

func TestRemove_UnmatchedSignature(t *testing.T) {
	existing := []WavePacket{pkt(1.0, 0.5, 0.2, 10)}

	_, err := Remove(existing, []WavePacket{pkt(4.0, 0.5, 0.2, 1)})
	if !errors.Is(err, ErrInsufficientPackets) {
		t.Fatalf("expected ErrInsufficientPackets for unmatched signature, got %v", err)
	}
}

func TestWithdraw_CapsUnitsAndSplitsEntry(t *testing.T) {
	source := []WavePacket{pkt(1.0, 0.5, 0.2, 50)}

	taken, remaining := Withdraw(source, nil, 5)
	if Total(taken) != 5 {
		t.Fatalf("expected 5 units taken, got %d", Total(taken))
	}
	if Total(remaining) != 45 {
		t.Fatalf("expected 45 units remaining, got %d", Total(remaining))
	}
	if taken[0].Frequency != 1.0 || taken[0].Amplitude != 0.5 || taken[0].Phase != 0.2 {
		t.Fatalf("expected withdrawn packet to keep source scalars, got %+v", taken[0])
	}
}

func TestWithdraw_FilterExcludesEverything(t *testing.T) {
	source := []WavePacket{pkt(1.0, 0.5, 0.2, 50)}
	filter := &FrequencyRange{Min: 2.0, Max: 3.0}

	taken, remaining := Withdraw(source, filter, 5)
	if len(taken) != 0 {
		t.Fatalf("expected empty withdrawal, got %+v", taken)
	}
	if Total(remaining) != 50 {
		t.Fatalf("expected source untouched at 50, got %d", Total(remaining))
	}
}

func TestWithdraw_SpansEntries(t *testing.T) {
	source := []WavePacket{
		pkt(1.0, 0.5, 0.2, 2),
		pkt(2.0, 0.3, 0.1, 2),
		pkt(3.0, 0.7, 0.4, 2),
	}

	taken, remaining := Withdraw(source, nil, 5)
	if Total(taken) != 5 {
		t.Fatalf("expected 5 units taken, got %d", Total(taken))
	}
	if Total(remaining) != 1 {
		t.Fatalf("expected 1 unit remaining, got %d", Total(remaining))
	}
	if len(remaining) != 1 || remaining[0].Frequency != 3.0 {
		t.Fatalf("expected the last entry to hold the remainder, got %+v", remaining)
	}
}

func TestWithdraw_DrainedEntriesAreDropped(t *testing.T) {
	source := []WavePacket{pkt(1.0, 0.5, 0.2, 3)}

	taken, remaining := Withdraw(source, nil, 5)
	if Total(taken) != 3 {
		t.Fatalf("expected all 3 units taken, got %d", Total(taken))
	}
	if remaining != nil {
		t.Fatalf("expected empty remainder, got %+v", remaining)
	}
}

func TestEquivalent_IgnoresOrderAndSplit(t *testing.T) {
	a := []WavePacket{pkt(1.0, 0.5, 0.2, 6), pkt(2.0, 0.3, 0.1, 4)}
	b := []WavePacket{pkt(2.0, 0.3, 0.1, 4), pkt(1.003, 0.497, 0.2, 2), pkt(1.0, 0.5, 0.2, 4)}

	if !Equivalent(a, b) {
		t.Fatalf("expected compositions to be merge-equivalent")
	}
}

func TestEquivalent_CountMismatch(t *testing.T) {
	a := []WavePacket{pkt(1.0, 0.5, 0.2, 6)}
	b := []WavePacket{pkt(1.0, 0.5, 0.2, 5)}

	if Equivalent(a, b) {
		t.Fatalf("expected count mismatch to break equivalence")
	}
}

func TestValidFrequency_Domain(t *testing.T) {
	if !ValidFrequency(0) {
		t.Fatalf("expected 0 to be a valid frequency")
	}
	if !ValidFrequency(2*math.Pi - 1e-9) {
		t.Fatalf("expected value just under 2π to be valid")
	}
	if ValidFrequency(2 * math.Pi) {
		t.Fatalf("expected 2π to be out of domain")
	}
	if ValidFrequency(-0.1) {
		t.Fatalf("expected negative frequency to be out of domain")
	}
}
