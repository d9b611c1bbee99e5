package extraction

import (
	"fmt"
	"time"

	"resonance-server/internal/packet"
)

// Session tracks one actor extracting from one orb. At most one active
// session exists per (actor, orb) pair; ended sessions stay around so
// in-flight packet ids remain traceable.
type Session struct {
	ID               int        `json:"id"`
	ActorID          int        `json:"actor_id"`
	OrbID            int        `json:"orb_id"`
	FilterMin        *float64   `json:"filter_min,omitempty"`
	FilterMax        *float64   `json:"filter_max,omitempty"`
	PacketSeq        int        `json:"packet_seq"`
	StartedAt        time.Time  `json:"started_at"`
	LastExtractionAt *time.Time `json:"last_extraction_at,omitempty"`
	Active           bool       `json:"active"`
}

// Filter returns the session's frequency window, or nil when the session
// extracts everything.
func (s *Session) Filter() *packet.FrequencyRange {
	if s.FilterMin == nil || s.FilterMax == nil {
		return nil
	}
	return &packet.FrequencyRange{Min: *s.FilterMin, Max: *s.FilterMax}
}

// InFlightPacket is a packet batch travelling from an orb to the
// extracting actor. It holds exactly one composition entry; the actor
// acknowledges it by id once the travel time has elapsed.
type InFlightPacket struct {
	ID         string    `json:"id"`
	SessionID  int       `json:"session_id"`
	ActorID    int       `json:"actor_id"`
	OrbID      int       `json:"orb_id"`
	Frequency  float64   `json:"frequency"`
	Amplitude  float64   `json:"amplitude"`
	Phase      float64   `json:"phase"`
	Count      uint32    `json:"count"`
	DepartedAt time.Time `json:"departed_at"`
	Deadline   time.Time `json:"deadline"`
}

// Packet returns the wave packet the in-flight unit carries.
func (p *InFlightPacket) Packet() packet.WavePacket {
	return packet.WavePacket{
		Frequency: p.Frequency,
		Amplitude: p.Amplitude,
		Phase:     p.Phase,
		Count:     p.Count,
	}
}

// InFlightID derives the stable identifier for the seq-th packet of a
// session.
func InFlightID(sessionID, seq int) string {
	return fmt.Sprintf("%d-%d", sessionID, seq)
}
