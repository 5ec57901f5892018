// Package scanner maintains the live inventory of wireless networks
// observed through 802.11 beacon frames and drives the capture worker
// that feeds it.
package scanner

import (
	"sync"
	"time"

	"AirSpectra/internal/model"
	"AirSpectra/internal/radiotap"
)

// DefaultStaleAfter is the read-time staleness window: networks not seen
// within it are filtered from snapshots but kept in the table.
const DefaultStaleAfter = 10 * time.Second

// Aggregator deduplicates beacon frames into a network table keyed by
// BSSID. Entries are never deleted; staleness is enforced only when
// reading, so the table can grow unboundedly over a long session.
type Aggregator struct {
	mu         sync.RWMutex
	networks   map[string]*model.WiFiNetwork
	staleAfter time.Duration
	now        func() time.Time
}

// NewAggregator creates an empty network table. A non-positive staleAfter
// falls back to DefaultStaleAfter.
func NewAggregator(staleAfter time.Duration) *Aggregator {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Aggregator{
		networks:   make(map[string]*model.WiFiNetwork),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Observe upserts the network table from a parsed frame. Only beacon
// frames carrying a non-empty SSID are recorded; hidden networks never
// create an entry.
func (a *Aggregator) Observe(frame *radiotap.Frame) {
	if !frame.IsBeacon() || frame.SSID == "" {
		return
	}
	bssid := frame.BSSID()

	a.mu.Lock()
	defer a.mu.Unlock()

	network, ok := a.networks[bssid]
	if !ok {
		network = &model.WiFiNetwork{
			SSID:      frame.SSID,
			BSSID:     bssid,
			Frequency: uint32(frame.Radiotap.ChannelFreq),
			Channel:   uint32(frame.Channel),
			Security:  securityLabel(frame.FrameControl),
		}
		a.networks[bssid] = network
	}

	network.LastSeen = a.now()
	network.BeaconCount++

	if frame.Radiotap.Has(radiotap.PresentAntennaSignal) {
		signal := int32(frame.Radiotap.AntennaSignal)

		// Linear remap of the conventional -100..0 dBm range onto 0..100.
		normalized := signal + 100
		if normalized < 0 {
			normalized = 0
		}
		quality := uint32(normalized) * 2
		if quality > 100 {
			quality = 100
		}
		network.SignalQuality = quality

		// Exact running mean over all samples, truncating division.
		count := int32(network.BeaconCount)
		if count > 1 {
			network.AvgSignal = (network.AvgSignal*(count-1) + signal) / count
		} else {
			network.AvgSignal = signal
		}
	}
}

// Snapshot returns copies of every network seen within the staleness
// window. Stale entries are only filtered from the view, never removed.
func (a *Aggregator) Snapshot() []model.WiFiNetwork {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	result := make([]model.WiFiNetwork, 0, len(a.networks))
	for _, network := range a.networks {
		if now.Sub(network.LastSeen) < a.staleAfter {
			result = append(result, *network)
		}
	}
	return result
}

// Size returns the total number of entries in the table, stale included.
func (a *Aggregator) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.networks)
}

// securityLabel derives a coarse security label from the privacy bit of
// the frame-control word. This is a capability-bit heuristic, not an RSN
// parse.
func securityLabel(frameControl uint16) string {
	if frameControl&0x0010 != 0 {
		return "WPA/WPA2"
	}
	return "Open"
}
