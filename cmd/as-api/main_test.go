package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"AirSpectra/internal/model"
)

func TestNonNilNetworksEncodesEmptyList(t *testing.T) {
	out, err := json.Marshal(nonNilNetworks(nil))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "[]" {
		t.Errorf("expected nil scan result to encode as [], got %s", out)
	}

	networks := []model.WiFiNetwork{{SSID: "lab-net", BSSID: "AA:BB:CC:00:11:22"}}
	if got := nonNilNetworks(networks); len(got) != 1 {
		t.Errorf("non-nil input must pass through, got %d networks", len(got))
	}
}

func TestChannelsHandlerBeforeAnyScan(t *testing.T) {
	h := &APIHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels", nil)
	rec := httptest.NewRecorder()

	h.channelsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body == "null" {
		t.Fatal("channels response must never be null")
	}
	var channels []model.ChannelData
	if err := json.Unmarshal([]byte(body), &channels); err != nil {
		t.Fatalf("failed to decode channel list: %v", err)
	}
	if len(channels) != 13 {
		t.Errorf("expected 13 channel entries, got %d", len(channels))
	}
}
