package storagenode

import (
	"time"

	"resonance-server/internal/packet"
)

// StorageNode is an actor-owned capacity sink placed in a world. It
// participates in transfers exactly like a second inventory.
type StorageNode struct {
	ID          int                 `json:"id"`
	OwnerID     int                 `json:"owner_id"`
	Name        string              `json:"name"`
	WorldX      int                 `json:"world_x"`
	WorldY      int                 `json:"world_y"`
	WorldZ      int                 `json:"world_z"`
	X           float64             `json:"x"`
	Y           float64             `json:"y"`
	Z           float64             `json:"z"`
	Composition []packet.WavePacket `json:"composition"`
	TotalCount  uint32              `json:"total_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Placement is a candidate storage node position.
type Placement struct {
	WorldX int
	WorldY int
	WorldZ int
	X      float64
	Y      float64
	Z      float64
}
