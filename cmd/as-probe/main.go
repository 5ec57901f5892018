package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AirSpectra/internal/capture"
	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
	"AirSpectra/internal/probe"
	"AirSpectra/internal/scanner"
)

func main() {
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print, 'scan' to run a bounded WiFi scan.")
	iface := flag.String("iface", "", "Interface to capture from (required for pub and scan modes).")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Falling back to default configuration: %v", err)
		cfg = config.Default()
	}

	switch *mode {
	case "pub":
		runProbe(cfg, *iface)
	case "sub":
		runSubscriber(cfg)
	case "scan":
		runScan(cfg, *iface)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures packets on the interface and publishes the decoded
// records to NATS until interrupted.
func runProbe(cfg *config.Config, iface string) {
	if iface == "" {
		log.Println("Error: -iface flag is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting as-probe in PROBE mode on interface: %s", iface)

	pub, err := probe.NewPublisher(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	session := capture.NewSession(cfg.Capture, pub)
	if err := session.Start(iface); err != nil {
		log.Fatalf("Error opening device %s: %v", iface, err)
	}
	log.Println("Capture started successfully. Publishing packets to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	session.Stop()
}

// runSubscriber prints every packet and scan event received over NATS.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting as-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	if err := sub.OnPacket(func(info model.PacketInfo) {
		log.Printf("Received Packet: %+v", info)
	}); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}
	if err := sub.OnScanProgress(func(progress model.ScanProgress) {
		log.Printf("Scan progress: %d networks (complete=%v)", len(progress.Networks), progress.IsComplete)
	}); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

// runScan runs one bounded WiFi scan and prints the resulting table.
func runScan(cfg *config.Config, iface string) {
	if iface == "" {
		log.Println("Error: -iface flag is required for scan mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Scanning WiFi networks on %s...", iface)

	stop, progress, err := scanner.StartScan(iface, cfg.Scanner)
	if err != nil {
		log.Fatalf("Failed to start scan: %v", err)
	}

	deadline := time.After(config.Duration(cfg.Scanner.ScanTimeout, 10*time.Second))
	var final []model.WiFiNetwork

poll:
	for {
		select {
		case p, ok := <-progress:
			if !ok {
				break poll
			}
			final = p.Networks
			if p.IsComplete {
				break poll
			}
			log.Printf("... %d networks so far", len(p.Networks))
		case <-deadline:
			deadline = nil
			stop <- struct{}{}
		}
	}

	fmt.Printf("%-20s %-18s %-8s %-8s %-10s %-8s %s\n",
		"SSID", "BSSID", "CHAN", "FREQ", "SECURITY", "QUALITY", "AVG dBm")
	for _, n := range final {
		fmt.Printf("%-20s %-18s %-8d %-8d %-10s %-8d %d\n",
			n.SSID, n.BSSID, n.Channel, n.Frequency, n.Security, n.SignalQuality, n.AvgSignal)
	}
	log.Printf("Scan completed, found %d networks", len(final))
}
