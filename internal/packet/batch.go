package packet

// SplitBatches divides a composition into transfer batches, each holding
// at most maxPerFrequency units of any single signature and at most
// maxTotal units overall. Oversized requests become several batches
// instead of failing.
func SplitBatches(packets []WavePacket, maxPerFrequency, maxTotal uint32) [][]WavePacket {
	if maxPerFrequency == 0 || maxTotal == 0 {
		return nil
	}

	remaining := Consolidate(packets)
	var batches [][]WavePacket

	for Total(remaining) > 0 {
		var batch []WavePacket
		var batchTotal uint32

		for i := range remaining {
			if batchTotal >= maxTotal {
				break
			}
			if remaining[i].Count == 0 {
				continue
			}

			take := remaining[i].Count
			if take > maxPerFrequency {
				take = maxPerFrequency
			}
			if take > maxTotal-batchTotal {
				take = maxTotal - batchTotal
			}

			batch = append(batch, WavePacket{
				Frequency: remaining[i].Frequency,
				Amplitude: remaining[i].Amplitude,
				Phase:     remaining[i].Phase,
				Count:     take,
			})
			remaining[i].Count -= take
			batchTotal += take
		}

		if len(batch) == 0 {
			break
		}
		batches = append(batches, batch)
		remaining = compact(remaining)
	}

	return batches
}
