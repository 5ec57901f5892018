package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureConfig holds the settings for the generic packet capture session.
type CaptureConfig struct {
	SnapLen     int32  `yaml:"snaplen"`
	Promiscuous bool   `yaml:"promiscuous"`
	ReadTimeout string `yaml:"read_timeout"`
	PayloadPort uint16 `yaml:"payload_port"`
}

// ScannerConfig holds the settings for the WiFi scan worker.
type ScannerConfig struct {
	SnapLen        int32  `yaml:"snaplen"`
	ReadTimeout    string `yaml:"read_timeout"`
	UpdateInterval string `yaml:"update_interval"`
	StaleAfter     string `yaml:"stale_after"`
	ScanTimeout    string `yaml:"scan_timeout"`
}

// NATSConfig holds the settings for the event publisher.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	PacketSubject string `yaml:"packet_subject"`
	ScanSubject   string `yaml:"scan_subject"`
}

// APIConfig holds the settings for the HTTP command surface.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Scanner ScannerConfig `yaml:"scanner"`
	NATS    NATSConfig    `yaml:"nats"`
	API     APIConfig     `yaml:"api"`
}

// Default returns a configuration with every field set to a usable value.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			SnapLen:     65536,
			Promiscuous: true,
			ReadTimeout: "100ms",
			PayloadPort: 80,
		},
		Scanner: ScannerConfig{
			SnapLen:        2048,
			ReadTimeout:    "100ms",
			UpdateInterval: "500ms",
			StaleAfter:     "10s",
			ScanTimeout:    "10s",
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			PacketSubject: "airspectra.packets.decoded",
			ScanSubject:   "airspectra.scan.progress",
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct. Fields missing from the file keep their defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return cfg, nil
}

// Duration parses a duration string from the config, falling back to def
// when the field is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
