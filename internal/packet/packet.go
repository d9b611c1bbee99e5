package packet

import (
	"errors"
	"math"
)

// Tolerance is the scalar distance under which two wave packets are
// considered the same signature. Two packets merge only when frequency,
// amplitude and phase all differ by less than this value.
const Tolerance = 0.01

var (
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrInsufficientPackets = errors.New("insufficient packets")
)

// WavePacket is a typed bundle of identical resource units. Frequency is
// the signature key in [0, 2π); amplitude and phase qualify the signature.
type WavePacket struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Count     uint32  `json:"count"`
}

// FrequencyRange is an inclusive frequency window used to restrict
// extraction to a subset of a node's composition.
type FrequencyRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r FrequencyRange) Contains(frequency float64) bool {
	return frequency >= r.Min && frequency <= r.Max
}

// ValidFrequency reports whether f lies in the signature domain [0, 2π).
func ValidFrequency(f float64) bool {
	return f >= 0 && f < 2*math.Pi
}

// Mergeable reports whether two packets carry the same signature within
// tolerance on all three scalars.
func Mergeable(a, b WavePacket) bool {
	return math.Abs(a.Frequency-b.Frequency) < Tolerance &&
		math.Abs(a.Amplitude-b.Amplitude) < Tolerance &&
		math.Abs(a.Phase-b.Phase) < Tolerance
}

// Total returns the unit count summed across all packets.
func Total(packets []WavePacket) uint32 {
	var total uint64
	for _, p := range packets {
		total += uint64(p.Count)
	}
	if total > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(total)
}

// Clone returns a copy of the composition.
func Clone(packets []WavePacket) []WavePacket {
	if packets == nil {
		return nil
	}
	out := make([]WavePacket, len(packets))
	copy(out, packets)
	return out
}

// Consolidate folds mergeable entries together so that no two entries in
// the result share a signature. The first occurrence of a signature keeps
// its scalar values; later mergeable entries only contribute their counts.
// Zero-count entries are dropped.
func Consolidate(packets []WavePacket) []WavePacket {
	out := make([]WavePacket, 0, len(packets))
	for _, p := range packets {
		if p.Count == 0 {
			continue
		}
		merged := false
		for i := range out {
			if Mergeable(out[i], p) {
				out[i].Count += p.Count
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, p)
		}
	}
	return out
}

// Add merges incoming packets into an existing composition, enforcing the
// capacity as an all-or-nothing check. On ErrCapacityExceeded the existing
// composition is returned unchanged.
func Add(existing, incoming []WavePacket, capacity uint32) ([]WavePacket, error) {
	incomingTotal := Total(incoming)
	if incomingTotal == 0 {
		return existing, nil
	}

	if uint64(Total(existing))+uint64(incomingTotal) > uint64(capacity) {
		return existing, ErrCapacityExceeded
	}

	out := Clone(existing)
	for _, p := range incoming {
		if p.Count == 0 {
			continue
		}
		merged := false
		for i := range out {
			if Mergeable(out[i], p) {
				out[i].Count += p.Count
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, p)
		}
	}
	return out, nil
}

// Remove takes the requested packets out of a composition. Requested
// entries match existing ones by signature tolerance. If any entry cannot
// be satisfied in full the whole removal fails with ErrInsufficientPackets
// and the existing composition is returned unchanged.
func Remove(existing, requested []WavePacket) ([]WavePacket, error) {
	request := Consolidate(requested)
	if len(request) == 0 {
		return existing, nil
	}

	out := Clone(existing)
	for _, want := range request {
		found := false
		for i := range out {
			if !Mergeable(out[i], want) {
				continue
			}
			if out[i].Count < want.Count {
				return existing, ErrInsufficientPackets
			}
			out[i].Count -= want.Count
			found = true
			break
		}
		if !found {
			return existing, ErrInsufficientPackets
		}
	}

	return compact(out), nil
}

// Withdraw takes up to maxUnits units from the source composition,
// restricted to the optional frequency filter. Entries are drained in
// order and split when only part of an entry fits. It returns the taken
// packets and the remaining composition; when nothing matches the filter
// the source is returned unchanged with an empty take.
func Withdraw(source []WavePacket, filter *FrequencyRange, maxUnits uint32) (taken, remaining []WavePacket) {
	if maxUnits == 0 {
		return nil, source
	}

	remaining = Clone(source)
	budget := maxUnits
	for i := range remaining {
		if budget == 0 {
			break
		}
		if remaining[i].Count == 0 {
			continue
		}
		if filter != nil && !filter.Contains(remaining[i].Frequency) {
			continue
		}

		take := remaining[i].Count
		if take > budget {
			take = budget
		}

		taken = append(taken, WavePacket{
			Frequency: remaining[i].Frequency,
			Amplitude: remaining[i].Amplitude,
			Phase:     remaining[i].Phase,
			Count:     take,
		})
		remaining[i].Count -= take
		budget -= take
	}

	return taken, compact(remaining)
}

// Equivalent reports whether two compositions carry the same units, after
// consolidation, matching entries pairwise by signature tolerance.
func Equivalent(a, b []WavePacket) bool {
	ca := Consolidate(a)
	cb := Consolidate(b)
	if len(ca) != len(cb) {
		return false
	}

	matched := make([]bool, len(cb))
	for _, pa := range ca {
		found := false
		for i, pb := range cb {
			if matched[i] || !Mergeable(pa, pb) || pa.Count != pb.Count {
				continue
			}
			matched[i] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// compact drops zero-count entries in place order.
func compact(packets []WavePacket) []WavePacket {
	out := packets[:0]
	for _, p := range packets {
		if p.Count > 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
