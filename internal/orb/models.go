package orb

import (
	"time"

	"resonance-server/internal/packet"
)

// Orb is a depletable resource node anchored in a world. Its composition
// is the authoritative record of the typed units it still holds.
type Orb struct {
	ID               int                 `json:"id"`
	WorldX           int                 `json:"world_x"`
	WorldY           int                 `json:"world_y"`
	WorldZ           int                 `json:"world_z"`
	X                float64             `json:"x"`
	Y                float64             `json:"y"`
	Z                float64             `json:"z"`
	Composition      []packet.WavePacket `json:"composition"`
	TotalCount       uint32              `json:"total_count"`
	ActiveExtractors int                 `json:"active_extractors"`
	LastDepletedAt   *time.Time          `json:"last_depleted_at"`
	CreatedAt        time.Time           `json:"created_at"`
}

// SeedRequest describes one orb to emit into a world.
type SeedRequest struct {
	X           float64             `json:"x"`
	Y           float64             `json:"y"`
	Z           float64             `json:"z"`
	Composition []packet.WavePacket `json:"composition"`
}
