package model

import "time"

// PacketInfo is the flat summary record extracted from a single captured
// frame. Layers that could not be decoded leave their fields at the zero
// value; the record is still valid.
type PacketInfo struct {
	SrcMAC    string `json:"src_mac"`
	DstMAC    string `json:"dst_mac"`
	SrcIP     string `json:"src_ip,omitempty"`
	DstIP     string `json:"dst_ip,omitempty"`
	SrcPort   uint16 `json:"src_port,omitempty"`
	DstPort   uint16 `json:"dst_port,omitempty"`
	Protocol  string `json:"protocol"`
	Length    int    `json:"length"`
	Payload   string `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WiFiNetwork is one observed access point, keyed by BSSID.
type WiFiNetwork struct {
	SSID          string    `json:"ssid"`
	BSSID         string    `json:"bssid"`
	SignalQuality uint32    `json:"signal_quality"`
	Frequency     uint32    `json:"frequency"`
	Channel       uint32    `json:"channel"`
	Security      string    `json:"security"`
	LastSeen      time.Time `json:"last_seen"`
	BeaconCount   uint32    `json:"beacon_count"`
	AvgSignal     int32     `json:"avg_signal"`
}

// ScanProgress is a snapshot emitted periodically by a scan worker and
// once terminally with IsComplete set.
type ScanProgress struct {
	Networks   []WiFiNetwork `json:"networks"`
	IsComplete bool          `json:"is_complete"`
}

// ChannelData is the occupancy figure for a single 2.4GHz channel.
type ChannelData struct {
	Channel   uint32  `json:"channel"`
	Occupancy float32 `json:"occupancy"`
}
