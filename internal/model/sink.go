package model

// EventSink defines a generic interface for publishing decoded records to
// an external consumer (message bus, websocket hub, ...).
type EventSink interface {
	// PublishPacket emits one decoded packet record.
	PublishPacket(info *PacketInfo) error

	// PublishScanProgress emits one scan snapshot.
	PublishScanProgress(progress *ScanProgress) error
}

// FanOut returns an EventSink that forwards every event to all the given
// sinks. An error from one sink does not stop delivery to the others; the
// last error is returned.
func FanOut(sinks ...EventSink) EventSink {
	return fanOutSink(sinks)
}

type fanOutSink []EventSink

func (f fanOutSink) PublishPacket(info *PacketInfo) error {
	var lastErr error
	for _, s := range f {
		if err := s.PublishPacket(info); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (f fanOutSink) PublishScanProgress(progress *ScanProgress) error {
	var lastErr error
	for _, s := range f {
		if err := s.PublishScanProgress(progress); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
