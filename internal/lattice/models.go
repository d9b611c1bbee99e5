package lattice

import "time"

type RelayStatus string

const (
	RelayStatusInactive RelayStatus = "inactive"
	RelayStatusCharging RelayStatus = "charging"
	RelayStatusActive   RelayStatus = "active"
)

// RelayParcel is one routed transfer sitting in a relay's buffer until
// the transit pulse clears it.
type RelayParcel struct {
	OfferID  int       `json:"offer_id"`
	Units    uint32    `json:"units"`
	RoutedAt time.Time `json:"routed_at"`
}

// RelayNode is one addressable node of a world's relay topology. The
// buffer is bounded in units, not parcels; charge accumulates per
// routed transfer toward activation at 100.
type RelayNode struct {
	ID             int           `json:"id"`
	WorldX         int           `json:"world_x"`
	WorldY         int           `json:"world_y"`
	WorldZ         int           `json:"world_z"`
	Address        Address       `json:"address"`
	X              float64       `json:"x"`
	Y              float64       `json:"y"`
	Z              float64       `json:"z"`
	Role           Role          `json:"role"`
	Buffer         []RelayParcel `json:"buffer"`
	BufferCount    uint32        `json:"buffer_count"`
	LifetimeRouted int64         `json:"lifetime_routed"`
	Charge         float64       `json:"charge"`
	Status         RelayStatus   `json:"status"`
	LinkedWorldX   *int          `json:"linked_world_x,omitempty"`
	LinkedWorldY   *int          `json:"linked_world_y,omitempty"`
	LinkedWorldZ   *int          `json:"linked_world_z,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Anchor is a routing endpoint: a position inside a world. Actors
// anchor at their world's origin, storage nodes at their placement.
type Anchor struct {
	WorldX int
	WorldY int
	WorldZ int
	X      float64
	Y      float64
	Z      float64
}

// RouteResult describes one relay hop taken by a routed transfer.
type RouteResult struct {
	RelayID   int
	WorldX    int
	WorldY    int
	WorldZ    int
	Address   Address
	Charge    float64
	Status    RelayStatus
	Activated bool
}
