package scanner

import (
	"fmt"
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
	"AirSpectra/internal/radiotap"
)

const beaconFilter = "type mgt subtype beacon"

// frameSource is the read side of a capture handle. *pcap.Handle
// satisfies it; tests substitute a synthetic source.
type frameSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close()
}

// Scanner owns one capture handle and the network table it feeds. The
// handle is only ever touched by the worker goroutine running Run.
type Scanner struct {
	src            frameSource
	agg            *Aggregator
	updateInterval time.Duration
}

// NewScanner opens the interface in promiscuous mode with a short read
// timeout, switches the handle to radiotap-wrapped 802.11 and restricts
// capture to management beacon frames.
func NewScanner(iface string, cfg config.ScannerConfig) (*Scanner, error) {
	snapLen := cfg.SnapLen
	if snapLen <= 0 {
		snapLen = 2048
	}

	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture handle for %s: %w", iface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(int(snapLen)); err != nil {
		return nil, fmt.Errorf("failed to set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("failed to set promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(config.Duration(cfg.ReadTimeout, 100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture on %s: %w", iface, err)
	}

	if err := handle.SetLinkType(layers.LinkTypeIEEE80211Radio); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set datalink type: %w", err)
	}
	if err := handle.SetBPFFilter(beaconFilter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set filter %q: %w", beaconFilter, err)
	}

	return newScanner(handle, cfg), nil
}

func newScanner(src frameSource, cfg config.ScannerConfig) *Scanner {
	return &Scanner{
		src:            src,
		agg:            NewAggregator(config.Duration(cfg.StaleAfter, DefaultStaleAfter)),
		updateInterval: config.Duration(cfg.UpdateInterval, 500*time.Millisecond),
	}
}

// Networks returns the current live view of the network table.
func (s *Scanner) Networks() []model.WiFiNetwork {
	return s.agg.Snapshot()
}

// Run pulls frames until stop is signalled or the capture fails, feeding
// beacons to the aggregator and publishing a snapshot on progress
// whenever the update interval has elapsed, frame or no frame. A final
// snapshot with IsComplete set is always delivered before progress is
// closed, even when periodic snapshots had to be dropped.
//
// Cancellation is cooperative: stop is checked once per iteration, so
// shutdown latency is bounded by the capture read timeout.
func (s *Scanner) Run(stop <-chan struct{}, progress chan model.ScanProgress) {
	defer s.src.Close()
	defer close(progress)

	lastUpdate := time.Now()

	for {
		select {
		case <-stop:
			s.publishFinal(progress)
			return
		default:
		}

		data, _, err := s.src.ReadPacketData()
		switch {
		case err == pcap.NextErrorTimeoutExpired:
			// Expected steady-state event, not a failure.
		case err != nil:
			log.Printf("Scanner: capture error, stopping: %v", err)
			s.publishFinal(progress)
			return
		default:
			if frame, perr := radiotap.ParseFrame(data); perr != nil {
				log.Printf("Scanner: skipping malformed frame: %v", perr)
			} else {
				s.agg.Observe(frame)
			}
		}

		if time.Since(lastUpdate) >= s.updateInterval {
			publish(progress, model.ScanProgress{Networks: s.agg.Snapshot()})
			lastUpdate = time.Now()
		}
	}
}

// publishFinal always delivers the terminal snapshot. The worker is the
// only sender, so when the buffer is full it evicts the oldest queued
// snapshot to make room rather than dropping the one that says the scan
// is over.
func (s *Scanner) publishFinal(progress chan model.ScanProgress) {
	final := model.ScanProgress{Networks: s.agg.Snapshot(), IsComplete: true}
	for {
		select {
		case progress <- final:
			return
		default:
		}
		select {
		case <-progress:
		default:
		}
	}
}

// publish never blocks the worker: a periodic snapshot the receiver has
// no room for is dropped, the next one supersedes it anyway.
func publish(progress chan<- model.ScanProgress, p model.ScanProgress) {
	select {
	case progress <- p:
	default:
		log.Println("Scanner: progress channel full, dropping snapshot")
	}
}

// StartScan opens the interface and spawns the scan worker. It returns a
// stop channel the caller closes (or sends on) to end the scan, and the
// progress channel the worker publishes to. The worker never enforces a
// deadline of its own; bounding the scan is the caller's job.
func StartScan(iface string, cfg config.ScannerConfig) (chan<- struct{}, <-chan model.ScanProgress, error) {
	s, err := NewScanner(iface, cfg)
	if err != nil {
		return nil, nil, err
	}

	stop := make(chan struct{}, 1)
	progress := make(chan model.ScanProgress, 16)
	go s.Run(stop, progress)

	return stop, progress, nil
}
