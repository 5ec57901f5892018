// Package radiotap decodes radiotap-prefixed 802.11 management frames.
//
// The decoder is a bounded cursor over the raw buffer: every read checks
// the remaining length first, so arbitrarily truncated or corrupt input
// yields an error or a partially-filled frame, never a panic.
package radiotap

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Present-field bits of the radiotap header, low to high. Only the fields
// this system consumes are decoded; other bits are ignored.
const (
	PresentTSFT          = 1 << 0
	PresentFlags         = 1 << 1
	PresentRate          = 1 << 2
	PresentChannel       = 1 << 3
	PresentFHSS          = 1 << 4
	PresentAntennaSignal = 1 << 5
	PresentAntennaNoise  = 1 << 6
	PresentLockQuality   = 1 << 7
	PresentAntenna       = 1 << 11
)

// Management frame subtypes handled by the tagged-element walk.
const (
	SubtypeProbeResponse = 5
	SubtypeBeacon        = 8
)

// Tagged element IDs recognized in beacon/probe-response bodies.
const (
	tagSSID           = 0
	tagSupportedRates = 1
	tagChannel        = 3
	tagExtendedRates  = 50
)

// Header is the decoded radiotap prefix. Present holds the raw
// present-fields bitmask from the wire; decoded tracks which optional
// fields were actually materialized, so a field whose bit is set but
// whose bytes fall past the buffer end reads back as absent.
type Header struct {
	Version uint8
	Pad     uint8
	Length  uint16
	Present uint32

	Timestamp     uint64
	Flags         uint8
	Rate          uint8
	ChannelFreq   uint16
	ChannelFlags  uint16
	AntennaSignal int8
	Antenna       uint8

	decoded uint32
}

// Has reports whether the optional field for the given present bit was
// decoded from the buffer.
func (h *Header) Has(bit uint32) bool {
	return h.decoded&bit != 0
}

// MarkDecoded flags optional fields as materialized on a header built
// programmatically rather than parsed off the wire.
func (h *Header) MarkDecoded(bits uint32) {
	h.Present |= bits
	h.decoded |= bits
}

// Frame is a decoded 802.11 management frame header plus, for beacons and
// probe responses, the tagged parameters this system consumes. An empty
// SSID means the element was absent or zero-length (a hidden network).
type Frame struct {
	Radiotap Header

	FrameControl uint16
	Duration     uint16
	Addr1        [6]byte
	Addr2        [6]byte
	Addr3        [6]byte
	SeqCtrl      uint16

	SSID    string
	Channel uint8
	Rates   []byte
}

// Type extracts the frame type from bits 2-3 of the frame-control word.
func (f *Frame) Type() uint8 {
	return uint8((f.FrameControl & 0x000C) >> 2)
}

// Subtype extracts the frame subtype from bits 4-7 of the frame-control word.
func (f *Frame) Subtype() uint8 {
	return uint8((f.FrameControl & 0x00F0) >> 4)
}

// IsBeacon reports whether the frame is a management beacon.
func (f *Frame) IsBeacon() bool {
	return f.Type() == 0 && f.Subtype() == SubtypeBeacon
}

// BSSID renders addr3 in canonical colon-separated uppercase hex.
func (f *Frame) BSSID() string {
	return FormatMAC(f.Addr3[:])
}

// FormatMAC renders a hardware address as colon-separated uppercase hex.
func FormatMAC(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, ":")
}

type cursor struct {
	data   []byte
	offset int
}

func (c *cursor) readU8() (uint8, bool) {
	if c.offset >= len(c.data) {
		return 0, false
	}
	v := c.data[c.offset]
	c.offset++
	return v, true
}

func (c *cursor) readU16() (uint16, bool) {
	if c.offset+2 > len(c.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(c.data[c.offset:])
	c.offset += 2
	return v, true
}

func (c *cursor) readU64() (uint64, bool) {
	if c.offset+8 > len(c.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(c.data[c.offset:])
	c.offset += 8
	return v, true
}

func (c *cursor) readMAC() ([6]byte, bool) {
	var addr [6]byte
	if c.offset+6 > len(c.data) {
		return addr, false
	}
	copy(addr[:], c.data[c.offset:c.offset+6])
	c.offset += 6
	return addr, true
}

// ParseHeader decodes the radiotap prefix of a captured frame. Optional
// fields whose bytes fall past the buffer end are left unset without
// failing the header as a whole.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("buffer too small for radiotap header: %d bytes", len(data))
	}

	version := data[0]
	if version != 0 {
		return nil, fmt.Errorf("unsupported radiotap version: %d", version)
	}

	h := &Header{
		Version: version,
		Pad:     data[1],
		Length:  binary.LittleEndian.Uint16(data[2:4]),
		Present: binary.LittleEndian.Uint32(data[4:8]),
	}

	// Optional fields follow in present-bit order, low to high.
	c := &cursor{data: data, offset: 8}
	if h.Present&PresentTSFT != 0 {
		if v, ok := c.readU64(); ok {
			h.Timestamp = v
			h.decoded |= PresentTSFT
		}
	}
	if h.Present&PresentFlags != 0 {
		if v, ok := c.readU8(); ok {
			h.Flags = v
			h.decoded |= PresentFlags
		}
	}
	if h.Present&PresentRate != 0 {
		if v, ok := c.readU8(); ok {
			h.Rate = v
			h.decoded |= PresentRate
		}
	}
	if h.Present&PresentChannel != 0 {
		freq, ok1 := c.readU16()
		flags, ok2 := c.readU16()
		if ok1 && ok2 {
			h.ChannelFreq = freq
			h.ChannelFlags = flags
			h.decoded |= PresentChannel
		}
	}
	if h.Present&PresentAntennaSignal != 0 {
		if v, ok := c.readU8(); ok {
			h.AntennaSignal = int8(v)
			h.decoded |= PresentAntennaSignal
		}
	}
	if h.Present&PresentAntenna != 0 {
		if v, ok := c.readU8(); ok {
			h.Antenna = v
			h.decoded |= PresentAntenna
		}
	}

	return h, nil
}

// ParseFrame decodes a radiotap header followed by an 802.11 management
// frame. The declared radiotap length is used verbatim as the offset of
// the 802.11 header; it is never recomputed from the fields parsed.
func ParseFrame(data []byte) (*Frame, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	c := &cursor{data: data, offset: int(h.Length)}
	if c.offset >= len(data) {
		return nil, fmt.Errorf("radiotap length %d exceeds buffer of %d bytes", h.Length, len(data))
	}

	f := &Frame{Radiotap: *h}

	var ok bool
	if f.FrameControl, ok = c.readU16(); !ok {
		return nil, fmt.Errorf("buffer too small for frame control")
	}
	if f.Duration, ok = c.readU16(); !ok {
		return nil, fmt.Errorf("buffer too small for duration")
	}
	if f.Addr1, ok = c.readMAC(); !ok {
		return nil, fmt.Errorf("buffer too small for addr1")
	}
	if f.Addr2, ok = c.readMAC(); !ok {
		return nil, fmt.Errorf("buffer too small for addr2")
	}
	if f.Addr3, ok = c.readMAC(); !ok {
		return nil, fmt.Errorf("buffer too small for addr3")
	}
	if f.SeqCtrl, ok = c.readU16(); !ok {
		return nil, fmt.Errorf("buffer too small for sequence control")
	}

	if f.Type() == 0 && (f.Subtype() == SubtypeBeacon || f.Subtype() == SubtypeProbeResponse) {
		// Fixed parameters: timestamp, beacon interval, capability info.
		if c.offset+12 <= len(data) {
			c.offset += 12
			parseTaggedElements(c, f)
		}
	}

	return f, nil
}

// parseTaggedElements walks the (tag, length, value) elements of a
// management frame body. A truncated trailing element ends the walk
// silently; it is tolerated, not an error.
func parseTaggedElements(c *cursor, f *Frame) {
	for c.offset+2 <= len(c.data) {
		tag, ok := c.readU8()
		if !ok {
			return
		}
		length8, ok := c.readU8()
		if !ok {
			return
		}
		length := int(length8)
		if c.offset+length > len(c.data) {
			return
		}
		value := c.data[c.offset : c.offset+length]

		switch tag {
		case tagSSID:
			if length > 0 {
				f.SSID = strings.ToValidUTF8(string(value), "�")
			}
		case tagChannel:
			if length > 0 {
				f.Channel = value[0]
			}
		case tagSupportedRates, tagExtendedRates:
			f.Rates = append(f.Rates, value...)
		}

		c.offset += length
	}
}
