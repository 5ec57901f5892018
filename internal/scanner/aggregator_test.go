package scanner

import (
	"testing"
	"time"

	"AirSpectra/internal/radiotap"
)

// beaconFrame fabricates the parsed form of a beacon the aggregator
// consumes, bypassing the wire codec exercised in the radiotap package.
func beaconFrame(ssid string, bssid [6]byte, signal int8, channel uint8) *radiotap.Frame {
	header := radiotap.Header{
		Length:        13,
		ChannelFreq:   2437,
		AntennaSignal: signal,
	}
	header.MarkDecoded(radiotap.PresentChannel | radiotap.PresentAntennaSignal)

	return &radiotap.Frame{
		Radiotap:     header,
		FrameControl: 0x0080,
		Addr3:        bssid,
		SSID:         ssid,
		Channel:      channel,
	}
}

func TestAggregatorRunningAverage(t *testing.T) {
	agg := NewAggregator(0)
	bssid := [6]byte{0xAA, 0x00, 0x00, 0x00, 0x00, 0x01}

	expected := []int32{-70, -65, -60}
	for i, signal := range []int8{-70, -60, -50} {
		agg.Observe(beaconFrame("avg-net", bssid, signal, 6))

		networks := agg.Snapshot()
		if len(networks) != 1 {
			t.Fatalf("expected 1 network, got %d", len(networks))
		}
		if networks[0].AvgSignal != expected[i] {
			t.Errorf("after beacon %d: expected avg %d, got %d", i+1, expected[i], networks[0].AvgSignal)
		}
		if networks[0].BeaconCount != uint32(i+1) {
			t.Errorf("after beacon %d: expected count %d, got %d", i+1, i+1, networks[0].BeaconCount)
		}
	}
}

func TestAggregatorSignalQualityMapping(t *testing.T) {
	cases := []struct {
		signal  int8
		quality uint32
	}{
		{-100, 0},
		{-50, 100},
		{-30, 100}, // clamped, not 140
		{-80, 40},
	}

	for _, tc := range cases {
		agg := NewAggregator(0)
		agg.Observe(beaconFrame("q-net", [6]byte{0xAA, 0, 0, 0, 0, 2}, tc.signal, 1))

		networks := agg.Snapshot()
		if len(networks) != 1 {
			t.Fatalf("signal %d: expected 1 network, got %d", tc.signal, len(networks))
		}
		if networks[0].SignalQuality != tc.quality {
			t.Errorf("signal %d: expected quality %d, got %d", tc.signal, tc.quality, networks[0].SignalQuality)
		}
	}
}

func TestAggregatorHiddenNetworkExcluded(t *testing.T) {
	agg := NewAggregator(0)
	agg.Observe(beaconFrame("", [6]byte{0xAA, 0, 0, 0, 0, 3}, -50, 1))

	if agg.Size() != 0 {
		t.Errorf("hidden network must never create an entry, table has %d", agg.Size())
	}
}

func TestAggregatorIgnoresNonBeacon(t *testing.T) {
	agg := NewAggregator(0)
	frame := beaconFrame("probe-net", [6]byte{0xAA, 0, 0, 0, 0, 4}, -50, 1)
	frame.FrameControl = 0x0050 // probe response

	agg.Observe(frame)
	if agg.Size() != 0 {
		t.Errorf("non-beacon frames must not be aggregated, table has %d", agg.Size())
	}
}

func TestAggregatorStaleness(t *testing.T) {
	agg := NewAggregator(10 * time.Second)
	current := time.Unix(1700000000, 0)
	agg.now = func() time.Time { return current }

	bssid := [6]byte{0xAA, 0, 0, 0, 0, 5}
	agg.Observe(beaconFrame("stale-net", bssid, -60, 6))
	agg.Observe(beaconFrame("stale-net", bssid, -60, 6))

	if got := len(agg.Snapshot()); got != 1 {
		t.Fatalf("expected 1 live network, got %d", got)
	}

	// Not re-observed for more than the staleness window: filtered from
	// the view but kept in the table with its statistics intact.
	current = current.Add(11 * time.Second)
	if got := len(agg.Snapshot()); got != 0 {
		t.Errorf("expected stale network to be filtered, got %d", got)
	}
	if agg.Size() != 1 {
		t.Errorf("stale network must remain in the table, size %d", agg.Size())
	}

	// Seen again: it reappears with accumulated statistics.
	agg.Observe(beaconFrame("stale-net", bssid, -60, 6))
	networks := agg.Snapshot()
	if len(networks) != 1 {
		t.Fatalf("expected network to reappear, got %d", len(networks))
	}
	if networks[0].BeaconCount != 3 {
		t.Errorf("expected beacon count 3 across staleness, got %d", networks[0].BeaconCount)
	}
}

func TestAggregatorKeepsFirstMetadata(t *testing.T) {
	agg := NewAggregator(0)
	bssid := [6]byte{0xAA, 0, 0, 0, 0, 6}

	agg.Observe(beaconFrame("meta-net", bssid, -40, 11))
	agg.Observe(beaconFrame("meta-net", bssid, -45, 11))

	networks := agg.Snapshot()
	if len(networks) != 1 {
		t.Fatalf("expected deduplication to one entry, got %d", len(networks))
	}
	n := networks[0]
	if n.Channel != 11 || n.Frequency != 2437 {
		t.Errorf("unexpected channel/frequency %d/%d", n.Channel, n.Frequency)
	}
	if n.Security != "Open" {
		t.Errorf("expected Open security, got %q", n.Security)
	}
}

func TestSecurityLabel(t *testing.T) {
	if got := securityLabel(0x0080 | 0x0010); got != "WPA/WPA2" {
		t.Errorf("expected WPA/WPA2 with privacy bit set, got %q", got)
	}
	if got := securityLabel(0x0080); got != "Open" {
		t.Errorf("expected Open without privacy bit, got %q", got)
	}
}
