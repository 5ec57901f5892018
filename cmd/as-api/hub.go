package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"AirSpectra/internal/model"
)

// wsEvent is the envelope written to websocket clients.
type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// eventHub fans decoded records out to websocket clients. It implements
// model.EventSink; a slow or dead client is dropped rather than allowed
// to stall the capture workers.
type eventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// handleEvents upgrades the request and keeps the connection registered
// until the client goes away.
func (h *eventHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Event hub: upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	log.Printf("Event hub: client connected (%d total)", h.clientCount())

	// Reads are only used to observe the close.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *eventHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *eventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *eventHub) broadcast(event wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *eventHub) PublishPacket(info *model.PacketInfo) error {
	h.broadcast(wsEvent{Type: "packet", Data: info})
	return nil
}

func (h *eventHub) PublishScanProgress(progress *model.ScanProgress) error {
	h.broadcast(wsEvent{Type: "scan_progress", Data: progress})
	return nil
}
