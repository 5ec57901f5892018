package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
)

// PacketHandler processes a received packet record.
type PacketHandler func(info model.PacketInfo)

// ScanHandler processes a received scan snapshot.
type ScanHandler func(progress model.ScanProgress)

// Subscriber consumes the event subjects the Publisher produces.
type Subscriber struct {
	nc   *nats.Conn
	cfg  config.NATSConfig
	subs []*nats.Subscription
}

// NewSubscriber connects to the configured NATS server.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, cfg: cfg}, nil
}

// OnPacket subscribes to the packet subject and invokes handler for every
// decoded record received.
func (s *Subscriber) OnPacket(handler PacketHandler) error {
	sub, err := s.nc.Subscribe(s.cfg.PacketSubject, func(msg *nats.Msg) {
		var info model.PacketInfo
		if err := json.Unmarshal(msg.Data, &info); err != nil {
			log.Printf("Error unmarshalling packet event: %v", err)
			return
		}
		handler(info)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	log.Printf("Subscribed to '%s'", s.cfg.PacketSubject)
	return nil
}

// OnScanProgress subscribes to the scan subject and invokes handler for
// every snapshot received.
func (s *Subscriber) OnScanProgress(handler ScanHandler) error {
	sub, err := s.nc.Subscribe(s.cfg.ScanSubject, func(msg *nats.Msg) {
		var progress model.ScanProgress
		if err := json.Unmarshal(msg.Data, &progress); err != nil {
			log.Printf("Error unmarshalling scan event: %v", err)
			return
		}
		handler(progress)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	log.Printf("Subscribed to '%s'", s.cfg.ScanSubject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
