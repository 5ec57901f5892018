package capture

import (
	"fmt"

	"github.com/google/gopacket/pcap"
)

// ListDevices returns the names of all capture devices on this host.
func ListDevices() ([]string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names, nil
}
