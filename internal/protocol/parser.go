// Package protocol decodes Ethernet-framed packets into flat summary
// records. Decoding is best-effort: the only hard failure is a buffer too
// short for the Ethernet header, every deeper layer that does not fit is
// left unset and the record is returned with whatever was decoded.
package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"AirSpectra/internal/model"
)

const (
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD

	ipProtoTCP = 6
	ipProtoUDP = 17

	// HTTPPort is the transport destination port whose TCP payload is
	// captured as best-effort text.
	HTTPPort = 80
)

// Parser converts raw Ethernet frames into model.PacketInfo records.
type Parser struct {
	payloadPort uint16
	now         func() time.Time
}

// NewParser returns a parser that captures the textual payload of TCP
// segments addressed to payloadPort (0 means HTTPPort).
func NewParser(payloadPort uint16) *Parser {
	if payloadPort == 0 {
		payloadPort = HTTPPort
	}
	return &Parser{payloadPort: payloadPort, now: time.Now}
}

// ParsePacket decodes a raw Ethernet frame. The timestamp is the
// wall-clock time at decode, not any on-wire timestamp.
func (p *Parser) ParsePacket(data []byte) (*model.PacketInfo, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("packet too short for Ethernet header: %d bytes", len(data))
	}

	info := &model.PacketInfo{
		DstMAC:    formatMAC(data[0:6]),
		SrcMAC:    formatMAC(data[6:12]),
		Length:    len(data),
		Timestamp: p.now().Unix(),
	}
	etherType := binary.BigEndian.Uint16(data[12:14])
	offset := 14

	var ipProto uint8

	switch etherType {
	case etherTypeIPv4:
		proto, hdrLen, ok := parseIPv4(data[offset:], info)
		if !ok {
			return info, nil
		}
		info.Protocol = fmt.Sprintf("IPv4 (%d)", proto)
		ipProto = proto
		offset += hdrLen
	case etherTypeIPv6:
		proto, hdrLen, ok := parseIPv6(data[offset:], info)
		if !ok {
			return info, nil
		}
		info.Protocol = fmt.Sprintf("IPv6 (%d)", proto)
		ipProto = proto
		offset += hdrLen
	default:
		info.Protocol = fmt.Sprintf("Unknown (0x%04X)", etherType)
		return info, nil
	}

	switch ipProto {
	case ipProtoTCP:
		hdrLen, ok := parseTCP(data[offset:], info)
		if !ok {
			return info, nil
		}
		offset += hdrLen
		if info.DstPort == p.payloadPort {
			if payload := data[offset:]; utf8.Valid(payload) {
				info.Payload = string(payload)
			}
		}
	case ipProtoUDP:
		parseUDP(data[offset:], info)
	}

	return info, nil
}

// parseIPv4 fills the address fields and returns the protocol byte and
// header length. ok is false when the header does not fit.
func parseIPv4(data []byte, info *model.PacketInfo) (proto uint8, hdrLen int, ok bool) {
	if len(data) < 20 {
		return 0, 0, false
	}
	version := data[0] >> 4
	hdrLen = int(data[0]&0x0F) * 4
	if version != 4 || len(data) < hdrLen {
		return 0, 0, false
	}
	info.SrcIP = net.IP(data[12:16]).String()
	info.DstIP = net.IP(data[16:20]).String()
	return data[9], hdrLen, true
}

// parseIPv6 fills the address fields and returns the next-header byte and
// the fixed 40-byte header length.
func parseIPv6(data []byte, info *model.PacketInfo) (proto uint8, hdrLen int, ok bool) {
	if len(data) < 40 {
		return 0, 0, false
	}
	if data[0]>>4 != 6 {
		return 0, 0, false
	}
	info.SrcIP = net.IP(data[8:24]).String()
	info.DstIP = net.IP(data[24:40]).String()
	return data[6], 40, true
}

func parseTCP(data []byte, info *model.PacketInfo) (hdrLen int, ok bool) {
	if len(data) < 20 {
		return 0, false
	}
	hdrLen = int(data[12]>>4) * 4
	if len(data) < hdrLen {
		return 0, false
	}
	info.SrcPort = binary.BigEndian.Uint16(data[0:2])
	info.DstPort = binary.BigEndian.Uint16(data[2:4])
	return hdrLen, true
}

func parseUDP(data []byte, info *model.PacketInfo) {
	if len(data) < 8 {
		return
	}
	info.SrcPort = binary.BigEndian.Uint16(data[0:2])
	info.DstPort = binary.BigEndian.Uint16(data[2:4])
}

// formatMAC renders a hardware address as colon-separated uppercase hex.
func formatMAC(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, ":")
}
