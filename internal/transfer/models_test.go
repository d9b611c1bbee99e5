package transfer

import (
	"testing"

	"resonance-server/internal/packet"
)

func TestParseTargetKind(t *testing.T) {
	cases := []struct {
		in   string
		want TargetKind
		ok   bool
	}{
		{"actor", TargetKindActor, true},
		{"storage", TargetKindStorage, true},
		{"", "", false},
		{"Actor", "", false},
		{"inventory", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseTargetKind(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseTargetKind(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOfferUnits(t *testing.T) {
	o := Offer{Composition: []packet.WavePacket{
		{Frequency: 1.0, Amplitude: 0.5, Phase: 0.2, Count: 4},
		{Frequency: 2.0, Amplitude: 0.5, Phase: 0.2, Count: 6},
	}}

	if o.Units() != 10 {
		t.Fatalf("expected 10 units, got %d", o.Units())
	}
}
