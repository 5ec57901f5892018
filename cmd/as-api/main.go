package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"AirSpectra/internal/capture"
	"AirSpectra/internal/config"
	"AirSpectra/internal/model"
	"AirSpectra/internal/probe"
	"AirSpectra/internal/scanner"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Falling back to default configuration: %v", err)
		cfg = config.Default()
	}

	// Event sinks: websocket hub always, NATS when configured.
	hub := newEventHub()
	sinks := []model.EventSink{hub}
	if cfg.NATS.Enabled {
		pub, err := probe.NewPublisher(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	sink := model.FanOut(sinks...)

	apiHandler := &APIHandler{
		cfg:     cfg,
		session: capture.NewSession(cfg.Capture, sink),
		sink:    sink,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/devices", apiHandler.listDevicesHandler).Methods("GET")
	r.HandleFunc("/api/v1/capture/start", apiHandler.startCaptureHandler).Methods("POST")
	r.HandleFunc("/api/v1/capture/stop", apiHandler.stopCaptureHandler).Methods("POST")
	r.HandleFunc("/api/v1/packets", apiHandler.fetchPacketsHandler).Methods("GET")
	r.HandleFunc("/api/v1/scan", apiHandler.scanHandler).Methods("POST")
	r.HandleFunc("/api/v1/channels", apiHandler.channelsHandler).Methods("GET", "POST")
	r.HandleFunc("/api/v1/events", hub.handleEvents)

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	apiHandler.session.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	cfg     *config.Config
	session *capture.Session
	sink    model.EventSink

	lastScanMu sync.Mutex
	lastScan   []model.WiFiNetwork
}

func (h *APIHandler) listDevicesHandler(w http.ResponseWriter, r *http.Request) {
	devices, err := capture.ListDevices()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list devices: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, devices)
}

func (h *APIHandler) startCaptureHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Device string `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Device == "" {
		http.Error(w, "request must carry a device name", http.StatusBadRequest)
		return
	}

	if err := h.session.Start(req.Device); err != nil {
		http.Error(w, fmt.Sprintf("failed to start capture: %v", err), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"status": "running", "device": req.Device})
}

func (h *APIHandler) stopCaptureHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(); err != nil {
		http.Error(w, fmt.Sprintf("failed to stop capture: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "stopped"})
}

func (h *APIHandler) fetchPacketsHandler(w http.ResponseWriter, r *http.Request) {
	packets := h.session.FetchNewPackets()
	if packets == nil {
		packets = []model.PacketInfo{}
	}
	writeJSON(w, packets)
}

// scanHandler runs one bounded WiFi scan. The worker itself never
// enforces a deadline; this handler is the caller that polls progress and
// sends stop when the ceiling is reached or completion is observed.
func (h *APIHandler) scanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interface string `json:"interface"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Interface == "" {
		http.Error(w, "request must carry an interface name", http.StatusBadRequest)
		return
	}

	networks, err := h.runScan(req.Interface)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to scan networks: %v", err), http.StatusInternalServerError)
		return
	}

	h.lastScanMu.Lock()
	h.lastScan = networks
	h.lastScanMu.Unlock()

	log.Printf("WiFi scan completed, found %d networks", len(networks))
	writeJSON(w, networks)
}

func (h *APIHandler) runScan(iface string) ([]model.WiFiNetwork, error) {
	stop, progress, err := scanner.StartScan(iface, h.cfg.Scanner)
	if err != nil {
		return nil, err
	}

	deadline := time.After(config.Duration(h.cfg.Scanner.ScanTimeout, 10*time.Second))
	var final []model.WiFiNetwork

	for {
		select {
		case p, ok := <-progress:
			if !ok {
				return nonNilNetworks(final), nil
			}
			final = p.Networks
			if err := h.sink.PublishScanProgress(&p); err != nil {
				log.Printf("Failed to publish scan progress: %v", err)
			}
			if p.IsComplete {
				return nonNilNetworks(final), nil
			}
		case <-deadline:
			deadline = nil
			stop <- struct{}{}
		}
	}
}

// nonNilNetworks keeps empty scan results encoding as [] instead of null.
func nonNilNetworks(networks []model.WiFiNetwork) []model.WiFiNetwork {
	if networks == nil {
		return []model.WiFiNetwork{}
	}
	return networks
}

func (h *APIHandler) channelsHandler(w http.ResponseWriter, r *http.Request) {
	var networks []model.WiFiNetwork

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&networks); err != nil {
			http.Error(w, fmt.Sprintf("failed to decode network list: %v", err), http.StatusBadRequest)
			return
		}
	} else {
		h.lastScanMu.Lock()
		networks = h.lastScan
		h.lastScanMu.Unlock()
	}

	writeJSON(w, scanner.ChannelOccupancy(networks))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
