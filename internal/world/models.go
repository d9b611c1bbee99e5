package world

import "time"

type WorldKind string

const (
	WorldKindCenter   WorldKind = "center"
	WorldKindStandard WorldKind = "standard"
)

// World is one cell of the world grid, keyed by integer coordinates.
type World struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Z         int       `json:"z"`
	Name      string    `json:"name"`
	Kind      WorldKind `json:"kind"`
	Shell     int       `json:"shell"`
	CreatedAt time.Time `json:"created_at"`
}
