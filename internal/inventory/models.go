package inventory

import (
	"time"

	"resonance-server/internal/packet"
)

// Inventory is an actor's consolidated unit store. Rows are created
// lazily on the first credit.
type Inventory struct {
	ActorID     int                 `json:"actor_id"`
	Composition []packet.WavePacket `json:"composition"`
	TotalCount  uint32              `json:"total_count"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
