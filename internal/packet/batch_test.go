package packet

import "testing"

func TestSplitBatches_PerFrequencyCap(t *testing.T) {
	packets := []WavePacket{pkt(1.0, 0.5, 0.2, 12)}

	batches := SplitBatches(packets, 5, 30)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	want := []uint32{5, 5, 2}
	for i, batch := range batches {
		if Total(batch) != want[i] {
			t.Fatalf("batch %d: expected %d units, got %d", i, want[i], Total(batch))
		}
	}
}

func TestSplitBatches_TotalCap(t *testing.T) {
	var packets []WavePacket
	for i := 0; i < 8; i++ {
		packets = append(packets, pkt(float64(i)*0.5, 0.5, 0.2, 5))
	}

	batches := SplitBatches(packets, 5, 30)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches for 40 units, got %d", len(batches))
	}
	if Total(batches[0]) != 30 {
		t.Fatalf("expected first batch capped at 30, got %d", Total(batches[0]))
	}
	if Total(batches[1]) != 10 {
		t.Fatalf("expected second batch to carry 10, got %d", Total(batches[1]))
	}
}

func TestSplitBatches_SmallRequestSingleBatch(t *testing.T) {
	packets := []WavePacket{pkt(1.0, 0.5, 0.2, 3), pkt(2.0, 0.3, 0.1, 4)}

	batches := SplitBatches(packets, 5, 30)
	if len(batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(batches))
	}
	if !Equivalent(batches[0], packets) {
		t.Fatalf("expected batch to match the request, got %+v", batches[0])
	}
}

func TestSplitBatches_ConservesUnits(t *testing.T) {
	packets := []WavePacket{
		pkt(0.5, 0.5, 0.2, 17),
		pkt(1.5, 0.3, 0.1, 9),
		pkt(2.5, 0.7, 0.4, 26),
	}

	batches := SplitBatches(packets, 5, 30)

	var union []WavePacket
	var total uint32
	for _, batch := range batches {
		union = append(union, batch...)
		total += Total(batch)
	}

	if total != 52 {
		t.Fatalf("expected 52 units across batches, got %d", total)
	}
	if !Equivalent(union, packets) {
		t.Fatalf("expected batch union to be equivalent to the request")
	}
}

func TestSplitBatches_Empty(t *testing.T) {
	if batches := SplitBatches(nil, 5, 30); batches != nil {
		t.Fatalf("expected no batches for empty composition, got %d", len(batches))
	}
}
