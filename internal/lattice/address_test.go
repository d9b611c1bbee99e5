package lattice

import "testing"

func TestAddresses_CountAndTiers(t *testing.T) {
	addresses := Addresses()
	if len(addresses) != 26 {
		t.Fatalf("expected 26 addresses, got %d", len(addresses))
	}

	counts := map[Role]int{}
	seen := map[Address]bool{}
	for _, a := range addresses {
		if !a.Valid() {
			t.Fatalf("generated invalid address %+v", a)
		}
		if seen[a] {
			t.Fatalf("duplicate address %+v", a)
		}
		seen[a] = true
		counts[a.RoleOf()]++
	}

	axis := counts[RoleAxisX] + counts[RoleAxisY] + counts[RoleAxisZ]
	planar := counts[RolePlaneXY] + counts[RolePlaneXZ] + counts[RolePlaneYZ]
	if axis != 6 {
		t.Fatalf("expected 6 axis addresses, got %d", axis)
	}
	if planar != 12 {
		t.Fatalf("expected 12 planar addresses, got %d", planar)
	}
	if counts[RoleCorner] != 8 {
		t.Fatalf("expected 8 corner addresses, got %d", counts[RoleCorner])
	}
}

func TestAddresses_TierOrder(t *testing.T) {
	addresses := Addresses()

	for i, a := range addresses {
		role := a.RoleOf()
		switch {
		case i < 6:
			if role != RoleAxisX && role != RoleAxisY && role != RoleAxisZ {
				t.Fatalf("expected axis relay at index %d, got %s", i, role)
			}
		case i < 18:
			if role != RolePlaneXY && role != RolePlaneXZ && role != RolePlaneYZ {
				t.Fatalf("expected planar relay at index %d, got %s", i, role)
			}
		default:
			if role != RoleCorner {
				t.Fatalf("expected corner relay at index %d, got %s", i, role)
			}
		}
	}
}

func TestRoleOf_SignPatterns(t *testing.T) {
	cases := []struct {
		address Address
		want    Role
	}{
		{Address{AX: 1}, RoleAxisX},
		{Address{AX: -1}, RoleAxisX},
		{Address{AY: 1}, RoleAxisY},
		{Address{AZ: -1}, RoleAxisZ},
		{Address{AX: 1, AY: -1}, RolePlaneXY},
		{Address{AX: -1, AZ: 1}, RolePlaneXZ},
		{Address{AY: 1, AZ: 1}, RolePlaneYZ},
		{Address{AX: 1, AY: 1, AZ: -1}, RoleCorner},
		{Address{AX: -1, AY: -1, AZ: -1}, RoleCorner},
	}

	for _, tc := range cases {
		if got := tc.address.RoleOf(); got != tc.want {
			t.Errorf("RoleOf(%+v): expected %s, got %s", tc.address, tc.want, got)
		}
	}
}

func TestAddress_Position(t *testing.T) {
	x, y, z := (Address{AX: 1, AY: 0, AZ: -1}).Position(40)
	if x != 40 || y != 0 || z != -40 {
		t.Fatalf("expected (40, 0, -40), got (%v, %v, %v)", x, y, z)
	}
}

func TestAddress_Valid(t *testing.T) {
	if (Address{}).Valid() {
		t.Fatalf("expected the zero address to be invalid")
	}
	if (Address{AX: 2}).Valid() {
		t.Fatalf("expected out-of-range component to be invalid")
	}
	if !(Address{AX: -1, AZ: 1}).Valid() {
		t.Fatalf("expected {-1,0,1} to be valid")
	}
}

func TestNearestRelay_PicksClosest(t *testing.T) {
	relays := []RelayNode{
		{ID: 1, X: 40, Y: 0, Z: 0},
		{ID: 2, X: 0, Y: 40, Z: 0},
		{ID: 3, X: -40, Y: 0, Z: 0},
	}

	got := nearestRelay(relays, 35, 5, 0)
	if got == nil || got.ID != 1 {
		t.Fatalf("expected relay 1, got %+v", got)
	}

	got = nearestRelay(relays, -10, 0, 0)
	if got == nil || got.ID != 3 {
		t.Fatalf("expected relay 3, got %+v", got)
	}
}

func TestNearestRelay_TieKeepsFirst(t *testing.T) {
	relays := []RelayNode{
		{ID: 1, X: 40, Y: 0, Z: 0},
		{ID: 2, X: -40, Y: 0, Z: 0},
	}

	got := nearestRelay(relays, 0, 0, 0)
	if got == nil || got.ID != 1 {
		t.Fatalf("expected the earliest relay on a tie, got %+v", got)
	}
}

func TestNearestRelay_Empty(t *testing.T) {
	if got := nearestRelay(nil, 0, 0, 0); got != nil {
		t.Fatalf("expected nil for an empty lattice, got %+v", got)
	}
}

func TestApplyCharge_Transitions(t *testing.T) {
	relay := &RelayNode{Status: RelayStatusInactive}

	if activated := applyCharge(relay, 2.5); activated {
		t.Fatalf("expected no activation at low charge")
	}
	if relay.Status != RelayStatusCharging {
		t.Fatalf("expected charging after first route, got %s", relay.Status)
	}
	if relay.Charge != 2.5 {
		t.Fatalf("expected charge 2.5, got %v", relay.Charge)
	}

	relay.Charge = 97.5
	if activated := applyCharge(relay, 2.5); !activated {
		t.Fatalf("expected activation at 100")
	}
	if relay.Status != RelayStatusActive {
		t.Fatalf("expected active status, got %s", relay.Status)
	}

	// Further routes keep the relay active without re-activating.
	if activated := applyCharge(relay, 2.5); activated {
		t.Fatalf("expected no second activation")
	}
	if relay.Charge != 100 {
		t.Fatalf("expected charge clamped at 100, got %v", relay.Charge)
	}
}
