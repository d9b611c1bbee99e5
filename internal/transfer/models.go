package transfer

import (
	"time"

	"resonance-server/internal/packet"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

type TargetKind string

const (
	TargetKindActor   TargetKind = "actor"
	TargetKindStorage TargetKind = "storage"
)

func ParseTargetKind(s string) (TargetKind, bool) {
	switch TargetKind(s) {
	case TargetKindActor:
		return TargetKindActor, true
	case TargetKindStorage:
		return TargetKindStorage, true
	default:
		return "", false
	}
}

// Offer is one pending transfer batch. The composition is held in
// escrow: it left the sender's inventory at initiate and flows to the
// target on accept or back to the sender on reject/expiry.
type Offer struct {
	ID          int                 `json:"id"`
	FromActorID int                 `json:"from_actor_id"`
	TargetKind  TargetKind          `json:"target_kind"`
	TargetID    int                 `json:"target_id"`
	Composition []packet.WavePacket `json:"composition"`
	Status      OfferStatus         `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
}

// Units returns the offer's total unit count.
func (o *Offer) Units() uint32 {
	return packet.Total(o.Composition)
}
