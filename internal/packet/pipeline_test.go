package packet

import (
	"errors"
	"testing"
)

// The pipeline moves units between compositions in fixed steps: node
// withdrawal, in-flight delivery into an inventory, escrow debit on a
// transfer, and credit into the recipient. These tests walk the whole
// chain on the value level and check that units are conserved at every
// hop.

func TestPipeline_ExtractAcknowledgeTransferAccept(t *testing.T) {
	node := []WavePacket{pkt(1.2, 0.8, 0.3, 50)}
	var inventoryA, inventoryB []WavePacket

	// Extraction withdraws at most 5 units per call.
	inFlight, node := Withdraw(node, nil, 5)
	if Total(inFlight) != 5 {
		t.Fatalf("expected 5 units in flight, got %d", Total(inFlight))
	}
	if Total(node) != 45 {
		t.Fatalf("expected node at 45 after withdrawal, got %d", Total(node))
	}

	// Acknowledge merges the arrival into the extractor's inventory.
	inventoryA, err := Add(inventoryA, inFlight, 300)
	if err != nil {
		t.Fatalf("unexpected acknowledge error: %v", err)
	}
	if Total(inventoryA) != 5 {
		t.Fatalf("expected inventory A at 5, got %d", Total(inventoryA))
	}

	// Initiating a transfer debits the sender before any acceptance.
	escrow := Clone(inventoryA)
	inventoryA, err = Remove(inventoryA, escrow)
	if err != nil {
		t.Fatalf("unexpected escrow error: %v", err)
	}
	if Total(inventoryA) != 0 {
		t.Fatalf("expected inventory A drained by escrow, got %d", Total(inventoryA))
	}

	// Acceptance credits the recipient.
	inventoryB, err = Add(inventoryB, escrow, 300)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if Total(inventoryB) != 5 {
		t.Fatalf("expected inventory B at 5, got %d", Total(inventoryB))
	}

	// Conservation across the whole chain.
	if Total(node)+Total(inventoryA)+Total(inventoryB) != 50 {
		t.Fatalf("expected 50 units conserved, got %d",
			Total(node)+Total(inventoryA)+Total(inventoryB))
	}
}

func TestPipeline_AcknowledgeRejectedAtCapacity(t *testing.T) {
	inventory := []WavePacket{pkt(0.4, 0.2, 0.1, 298)}
	inFlight := []WavePacket{pkt(1.2, 0.8, 0.3, 5)}

	// 298 + 5 exceeds the 300 cap; the merge is refused whole.
	after, err := Add(inventory, inFlight, 300)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if Total(after) != 298 {
		t.Fatalf("expected inventory unchanged at 298, got %d", Total(after))
	}
	if Total(inFlight) != 5 {
		t.Fatalf("expected in-flight packet intact at 5 units, got %d", Total(inFlight))
	}

	// After making room the same packet merges cleanly.
	after, err = Remove(after, []WavePacket{pkt(0.4, 0.2, 0.1, 3)})
	if err != nil {
		t.Fatalf("unexpected removal error: %v", err)
	}
	after, err = Add(after, inFlight, 300)
	if err != nil {
		t.Fatalf("expected acknowledge to succeed after making room, got %v", err)
	}
	if Total(after) != 300 {
		t.Fatalf("expected inventory at 300, got %d", Total(after))
	}
}

func TestPipeline_EscrowReturnIsMergeEquivalent(t *testing.T) {
	inventory := []WavePacket{
		pkt(1.0, 0.5, 0.2, 7),
		pkt(2.0, 0.3, 0.1, 3),
	}
	original := Clone(inventory)

	// Escrow out both signatures, then credit them back on rejection.
	escrow := []WavePacket{pkt(1.0, 0.5, 0.2, 4), pkt(2.0, 0.3, 0.1, 3)}
	inventory, err := Remove(inventory, escrow)
	if err != nil {
		t.Fatalf("unexpected escrow error: %v", err)
	}

	inventory, err = Add(inventory, escrow, 300)
	if err != nil {
		t.Fatalf("unexpected return error: %v", err)
	}

	if !Equivalent(inventory, original) {
		t.Fatalf("expected inventory to be merge-equivalent to its original state")
	}
}
