// Package probe carries decoded records over NATS so external consumers
// (UIs, recorders) can subscribe without touching the capture process.
// Payloads are JSON.
package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
)

// Publisher publishes packet and scan-progress events to NATS subjects.
// It implements model.EventSink.
type Publisher struct {
	nc            *nats.Conn
	packetSubject string
	scanSubject   string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{
		nc:            nc,
		packetSubject: cfg.PacketSubject,
		scanSubject:   cfg.ScanSubject,
	}, nil
}

// PublishPacket serializes one decoded packet record to JSON and
// publishes it to the packet subject.
func (p *Publisher) PublishPacket(info *model.PacketInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.packetSubject, data)
}

// PublishScanProgress serializes one scan snapshot to JSON and publishes
// it to the scan subject.
func (p *Publisher) PublishScanProgress(progress *model.ScanProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.scanSubject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
