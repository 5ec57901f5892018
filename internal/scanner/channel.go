package scanner

import "AirSpectra/internal/model"

// ChannelOccupancy tallies the given networks over the 2.4GHz channels
// 1-13. Occupancy of a channel is the share of networks on it weighted by
// their average signal quality:
//
//	(count / total) * (avg_signal_quality / 100)
//
// Stateless; networks outside channels 1-13 only contribute to the total.
func ChannelOccupancy(networks []model.WiFiNetwork) []model.ChannelData {
	counts := make(map[uint32]uint32, 13)
	signals := make(map[uint32]uint32, 13)

	for _, network := range networks {
		if network.Channel >= 1 && network.Channel <= 13 {
			counts[network.Channel]++
			signals[network.Channel] += network.SignalQuality
		}
	}

	total := float32(len(networks))
	result := make([]model.ChannelData, 0, 13)
	for channel := uint32(1); channel <= 13; channel++ {
		count := counts[channel]

		var occupancy float32
		if total > 0 && count > 0 {
			avgSignal := float32(signals[channel]) / float32(count)
			occupancy = (float32(count) / total) * (avgSignal / 100)
		}

		result = append(result, model.ChannelData{Channel: channel, Occupancy: occupancy})
	}
	return result
}
