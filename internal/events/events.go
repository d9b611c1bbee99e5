package events

import (
	"time"

	"resonance-server/internal/packet"
)

// Type names a game event on the live stream.
type Type string

const (
	TypeExtractionBegun    Type = "extraction.begun"
	TypeExtractionEnded    Type = "extraction.ended"
	TypePacketExtracted    Type = "packet.extracted"
	TypePacketAcknowledged Type = "packet.acknowledged"
	TypePacketLost         Type = "packet.lost"
	TypeOrbDepleted        Type = "orb.depleted"
	TypeTransferInitiated  Type = "transfer.initiated"
	TypeTransferAccepted   Type = "transfer.accepted"
	TypeTransferRejected   Type = "transfer.rejected"
	TypeTransferExpired    Type = "transfer.expired"
	TypeRelayRouted        Type = "relay.routed"
	TypeRelayActivated     Type = "relay.activated"
	TypeStoragePlaced      Type = "storage.placed"
)

// WorldRef names the world an event happened in.
type WorldRef struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Event is the envelope pushed to stream subscribers. World is set for
// events anchored to a world; actor-scoped events leave it empty.
// Payload holds one of the typed payload structs below, keyed by Type.
type Event struct {
	Type    Type        `json:"type"`
	World   *WorldRef   `json:"world,omitempty"`
	ActorID int         `json:"actor_id,omitempty"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

type ExtractionPayload struct {
	SessionID int `json:"session_id"`
	OrbID     int `json:"orb_id"`
}

type PacketPayload struct {
	InFlightIDs []string            `json:"in_flight_ids,omitempty"`
	Packets     []packet.WavePacket `json:"packets,omitempty"`
	Units       uint32              `json:"units"`
}

type OrbPayload struct {
	OrbID int `json:"orb_id"`
}

type TransferPayload struct {
	OfferID    int    `json:"offer_id"`
	FromActor  int    `json:"from_actor"`
	TargetKind string `json:"target_kind"`
	TargetID   int    `json:"target_id"`
	Units      uint32 `json:"units"`
}

type RelayPayload struct {
	RelayID int     `json:"relay_id"`
	Address [3]int  `json:"address"`
	Charge  float64 `json:"charge"`
	Status  string  `json:"status"`
}

type StoragePayload struct {
	StorageID int    `json:"storage_id"`
	Name      string `json:"name"`
}
