package radiotap

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildBeacon assembles a minimal radiotap-wrapped beacon frame with a
// channel field and antenna signal in the radiotap header and SSID,
// channel and rates tagged elements in the management body.
func buildBeacon(ssid string, channel byte, bssid [6]byte, signal int8, freq uint16) []byte {
	var buf bytes.Buffer

	// Radiotap: version, pad, length, present (channel + antenna signal),
	// then freq, channel flags, signal.
	rt := make([]byte, 13)
	rt[0] = 0
	rt[1] = 0
	binary.LittleEndian.PutUint16(rt[2:4], 13)
	binary.LittleEndian.PutUint32(rt[4:8], PresentChannel|PresentAntennaSignal)
	binary.LittleEndian.PutUint16(rt[8:10], freq)
	binary.LittleEndian.PutUint16(rt[10:12], 0x0480)
	rt[12] = byte(signal)
	buf.Write(rt)

	// 802.11 header: frame control (beacon), duration, addr1-3, seq ctrl.
	hdr := make([]byte, 24)
	binary.LittleEndian.PutUint16(hdr[0:2], 0x0080)
	binary.LittleEndian.PutUint16(hdr[2:4], 0)
	copy(hdr[4:10], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	copy(hdr[10:16], bssid[:])
	copy(hdr[16:22], bssid[:])
	binary.LittleEndian.PutUint16(hdr[22:24], 0x10)
	buf.Write(hdr)

	// Fixed parameters block.
	buf.Write(make([]byte, 12))

	// Tagged elements: SSID, supported rates, channel.
	buf.WriteByte(0)
	buf.WriteByte(byte(len(ssid)))
	buf.WriteString(ssid)
	buf.Write([]byte{1, 3, 0x82, 0x84, 0x8B})
	buf.Write([]byte{3, 1, channel})

	return buf.Bytes()
}

func TestParseFrameBeaconRoundTrip(t *testing.T) {
	bssid := [6]byte{0xAA, 0xBB, 0xCC, 0x00, 0x11, 0x22}
	data := buildBeacon("lab-net", 6, bssid, -42, 2437)

	frame, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}

	if !frame.IsBeacon() {
		t.Errorf("expected beacon, got type %d subtype %d", frame.Type(), frame.Subtype())
	}
	if frame.SSID != "lab-net" {
		t.Errorf("expected SSID 'lab-net', got %q", frame.SSID)
	}
	if frame.Channel != 6 {
		t.Errorf("expected channel 6, got %d", frame.Channel)
	}
	if got := frame.BSSID(); got != "AA:BB:CC:00:11:22" {
		t.Errorf("expected BSSID AA:BB:CC:00:11:22, got %s", got)
	}
	if !frame.Radiotap.Has(PresentChannel) || frame.Radiotap.ChannelFreq != 2437 {
		t.Errorf("expected channel freq 2437, got %d", frame.Radiotap.ChannelFreq)
	}
	if !frame.Radiotap.Has(PresentAntennaSignal) || frame.Radiotap.AntennaSignal != -42 {
		t.Errorf("expected antenna signal -42, got %d", frame.Radiotap.AntennaSignal)
	}
	if len(frame.Rates) != 3 {
		t.Errorf("expected 3 rate bytes, got %d", len(frame.Rates))
	}
}

func TestParseHeaderAllFields(t *testing.T) {
	// Every decoded field present at once, laid out in present-bit order:
	// TSFT, flags, rate, channel freq and flags, antenna signal, antenna.
	data := make([]byte, 24)
	binary.LittleEndian.PutUint16(data[2:4], 24)
	binary.LittleEndian.PutUint32(data[4:8],
		PresentTSFT|PresentFlags|PresentRate|PresentChannel|PresentAntennaSignal|PresentAntenna)
	binary.LittleEndian.PutUint64(data[8:16], 0x1122334455667788)
	data[16] = 0x02 // short preamble
	data[17] = 0x6C // 54 Mbps in 500 kbps units
	binary.LittleEndian.PutUint16(data[18:20], 5180)
	binary.LittleEndian.PutUint16(data[20:22], 0x0140)
	signal := int8(-48)
	data[22] = byte(signal)
	data[23] = 2

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if !h.Has(PresentTSFT) || h.Timestamp != 0x1122334455667788 {
		t.Errorf("expected TSFT 0x1122334455667788, got %#x", h.Timestamp)
	}
	if !h.Has(PresentFlags) || h.Flags != 0x02 {
		t.Errorf("expected flags 0x02, got %#x", h.Flags)
	}
	if !h.Has(PresentRate) || h.Rate != 0x6C {
		t.Errorf("expected rate 0x6C, got %#x", h.Rate)
	}
	if !h.Has(PresentChannel) || h.ChannelFreq != 5180 || h.ChannelFlags != 0x0140 {
		t.Errorf("expected channel 5180/0x0140, got %d/%#x", h.ChannelFreq, h.ChannelFlags)
	}
	if !h.Has(PresentAntennaSignal) || h.AntennaSignal != -48 {
		t.Errorf("expected antenna signal -48, got %d", h.AntennaSignal)
	}
	if !h.Has(PresentAntenna) || h.Antenna != 2 {
		t.Errorf("expected antenna 2, got %d", h.Antenna)
	}
}

func TestParseHeaderRejectsShortBuffer(t *testing.T) {
	for i := 0; i < 8; i++ {
		if _, err := ParseHeader(make([]byte, i)); err == nil {
			t.Errorf("expected error for %d-byte buffer", i)
		}
	}
}

func TestParseHeaderRejectsBadVersion(t *testing.T) {
	data := make([]byte, 8)
	data[0] = 1
	if _, err := ParseHeader(data); err == nil {
		t.Error("expected error for radiotap version 1")
	}
}

func TestParseHeaderTruncatedOptionalField(t *testing.T) {
	// TSFT bit set but no bytes for it: the header still parses, the
	// field reads back as absent.
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[2:4], 8)
	binary.LittleEndian.PutUint32(data[4:8], PresentTSFT)

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.Has(PresentTSFT) {
		t.Error("truncated TSFT field should read back as absent")
	}
	if h.Present&PresentTSFT == 0 {
		t.Error("raw present mask must keep the TSFT bit")
	}
}

func TestParseFrameRejectsLengthBeyondBuffer(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint16(data[2:4], 16) // 802.11 start at buffer end
	if _, err := ParseFrame(data); err == nil {
		t.Error("expected error when radiotap length reaches buffer end")
	}
}

func TestParseFrameTruncationSafety(t *testing.T) {
	bssid := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	data := buildBeacon("truncation", 11, bssid, -60, 2462)

	for i := 0; i <= len(data); i++ {
		frame, err := ParseFrame(data[:i])
		if err == nil && frame == nil {
			t.Fatalf("nil frame without error at prefix %d", i)
		}
	}
}

func TestParseFrameToleratesTruncatedTrailingElement(t *testing.T) {
	bssid := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	data := buildBeacon("tail", 1, bssid, -50, 2412)
	// Declare a 200-byte vendor element but provide 2 bytes of it.
	data = append(data, 221, 200, 0x00, 0x50)

	frame, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.SSID != "tail" {
		t.Errorf("expected SSID 'tail', got %q", frame.SSID)
	}
}

func TestParseFrameSkipsTagsForNonBeacon(t *testing.T) {
	bssid := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x03}
	data := buildBeacon("assoc", 3, bssid, -55, 2422)
	// Rewrite frame control to subtype 4 (probe request): tags ignored.
	binary.LittleEndian.PutUint16(data[13:15], 0x0040)

	frame, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.SSID != "" {
		t.Errorf("expected no SSID for subtype 4, got %q", frame.SSID)
	}
}

func TestParseFrameHiddenSSID(t *testing.T) {
	bssid := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x04}
	data := buildBeacon("", 1, bssid, -70, 2412)

	frame, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.SSID != "" {
		t.Errorf("expected empty SSID, got %q", frame.SSID)
	}
	if frame.Channel != 1 {
		t.Errorf("expected channel 1, got %d", frame.Channel)
	}
}
