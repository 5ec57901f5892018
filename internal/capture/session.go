// Package capture owns the generic packet-capture lifecycle: one worker
// goroutine pulls frames from a live handle, decodes them and appends the
// records to a shared log that callers read incrementally.
package capture

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
	"AirSpectra/internal/protocol"
)

// packetSource is the read side of a capture handle. *pcap.Handle
// satisfies it; tests substitute a synthetic source.
type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close()
}

// handleSettings are the options applied to a new capture handle.
// Immediate mode is always on: decoded records reach subscribers as they
// arrive instead of sitting in libpcap's buffer.
type handleSettings struct {
	snapLen   int
	promisc   bool
	timeout   time.Duration
	immediate bool
}

func newHandleSettings(cfg config.CaptureConfig) handleSettings {
	snapLen := int(cfg.SnapLen)
	if snapLen <= 0 {
		snapLen = 65536
	}
	return handleSettings{
		snapLen:   snapLen,
		promisc:   cfg.Promiscuous,
		timeout:   config.Duration(cfg.ReadTimeout, 100*time.Millisecond),
		immediate: true,
	}
}

// openLive opens a device for the session; swapped out in tests.
var openLive = func(device string, cfg config.CaptureConfig) (packetSource, error) {
	set := newHandleSettings(cfg)

	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture handle for %s: %w", device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(set.snapLen); err != nil {
		return nil, fmt.Errorf("failed to set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(set.promisc); err != nil {
		return nil, fmt.Errorf("failed to set promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(set.timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	if err := inactive.SetImmediateMode(set.immediate); err != nil {
		return nil, fmt.Errorf("failed to set immediate mode: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Session is the shared state of one capture lifecycle. It is constructed
// once and handed by reference to both the worker and the caller-facing
// API; every mutable field has its own lock and none is held across a
// blocking read.
type Session struct {
	cfg    config.CaptureConfig
	parser *protocol.Parser
	sink   model.EventSink

	runningMu sync.Mutex
	running   bool

	deviceMu sync.Mutex
	device   string

	packetsMu sync.Mutex
	packets   []model.PacketInfo

	fetchMu       sync.Mutex
	lastFetchedAt int64
}

// NewSession creates an idle capture session. sink may be nil, in which
// case decoded records are only appended to the log.
func NewSession(cfg config.CaptureConfig, sink model.EventSink) *Session {
	return &Session{
		cfg:    cfg,
		parser: protocol.NewParser(cfg.PayloadPort),
		sink:   sink,
	}
}

// Start opens the device and spawns the capture worker. It fails when the
// device cannot be opened or a capture is already running.
func (s *Session) Start(device string) error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("capture already running")
	}
	s.running = true
	s.runningMu.Unlock()

	src, err := openLive(device, s.cfg)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to open device %s: %w", device, err)
	}

	s.deviceMu.Lock()
	s.device = device
	s.deviceMu.Unlock()

	log.Printf("Capture started on device %s", device)
	go s.worker(src)
	return nil
}

// Stop asks the worker to exit. The worker observes the flag on its next
// loop iteration; Stop returns without waiting for it.
func (s *Session) Stop() error {
	s.setRunning(false)
	s.deviceMu.Lock()
	s.device = ""
	s.deviceMu.Unlock()
	log.Println("Capture stop requested")
	return nil
}

// Running reports whether a capture lifecycle is active. After a fatal
// capture error the worker exits without clearing the flag; the session
// then reports running until Stop is called even though no worker is
// alive. Callers detect that state only by absence of further packets.
func (s *Session) Running() bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	return s.running
}

// Device returns the active device name, empty when idle.
func (s *Session) Device() string {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	return s.device
}

func (s *Session) setRunning(v bool) {
	s.runningMu.Lock()
	s.running = v
	s.runningMu.Unlock()
}

// worker loops until the running flag drops: read, decode, append,
// publish. Read timeouts are expected steady-state events; any other
// capture error ends the worker, leaving the running flag as it is.
func (s *Session) worker(src packetSource) {
	defer src.Close()

	for s.Running() {
		data, _, err := src.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		}
		if err != nil {
			log.Printf("Capture worker: read error, exiting: %v", err)
			return
		}

		info, err := s.parser.ParsePacket(data)
		if err != nil {
			log.Printf("Capture worker: skipping packet: %v", err)
			continue
		}

		s.packetsMu.Lock()
		s.packets = append(s.packets, *info)
		s.packetsMu.Unlock()

		if s.sink != nil {
			if err := s.sink.PublishPacket(info); err != nil {
				log.Printf("Capture worker: failed to publish packet event: %v", err)
			}
		}
	}
}

// FetchNewPackets returns every logged packet newer than the high-water
// mark of the previous call, then advances the mark. With no capture
// activity since the last call it returns an empty slice, never an error.
func (s *Session) FetchNewPackets() []model.PacketInfo {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.packetsMu.Lock()
	var fresh []model.PacketInfo
	for _, p := range s.packets {
		if p.Timestamp > s.lastFetchedAt {
			fresh = append(fresh, p)
		}
	}
	s.packetsMu.Unlock()

	if len(fresh) > 0 {
		s.lastFetchedAt = fresh[len(fresh)-1].Timestamp
	}
	return fresh
}
