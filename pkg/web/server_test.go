package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-fortuna/pkg/collection"
	"github.com/teslashibe/go-fortuna/pkg/element"
	"github.com/teslashibe/go-fortuna/pkg/tracking"
)

func testCollection(t *testing.T) collection.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "web-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := collection.NewJSONStore(filepath.Join(tmpDir, "collection.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestHandleStatus(t *testing.T) {
	srv := NewServer("0")
	srv.Classifier = "mock"
	srv.OnStats = func() map[string]tracking.Stats {
		return map[string]tracking.Stats{
			"phone-1": {Generation: 9, Entities: 2},
		}
	}

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if status.Classifier != "mock" {
		t.Errorf("Classifier = %s, want mock", status.Classifier)
	}
	if status.Tracking["phone-1"].Generation != 9 {
		t.Errorf("Tracking generation = %d, want 9", status.Tracking["phone-1"].Generation)
	}
}

func TestHandleAnchors(t *testing.T) {
	srv := NewServer("0")

	srv.PublishAnchors("phone-1", 5, []tracking.EntityView{
		{ID: 1, Label: "bottle", State: tracking.StateCompleted, Element: element.Water},
	})

	// All devices
	req := httptest.NewRequest("GET", "/api/anchors", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var all map[string]AnchorEvent
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(all) != 1 || all["phone-1"].Generation != 5 {
		t.Errorf("anchors = %+v, want phone-1 at generation 5", all)
	}

	// Single device
	req = httptest.NewRequest("GET", "/api/anchors/phone-1", nil)
	resp, err = srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var event AnchorEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(event.Entities) != 1 || event.Entities[0].Element != element.Water {
		t.Errorf("event = %+v, want one water entity", event)
	}
}

func TestHandleDeviceAnchorsNotFound(t *testing.T) {
	srv := NewServer("0")

	req := httptest.NewRequest("GET", "/api/anchors/ghost", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestRemoveDevice(t *testing.T) {
	srv := NewServer("0")

	srv.PublishAnchors("phone-1", 1, nil)
	srv.RemoveDevice("phone-1")

	req := httptest.NewRequest("GET", "/api/anchors/phone-1", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Status = %d, want 404 after removal", resp.StatusCode)
	}
}

func TestHandleCollectionToday(t *testing.T) {
	srv := NewServer("0")
	srv.Collection = testCollection(t)

	srv.Collection.Append(&collection.Record{Device: "phone-1", Element: element.Fire, Label: "candle"})
	srv.Collection.Append(&collection.Record{Device: "phone-1", Element: element.Fire, Label: "torch"})
	srv.Collection.Append(&collection.Record{Device: "phone-2", Element: element.Water, Label: "bottle"})

	req := httptest.NewRequest("GET", "/api/collection/today", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Records  []collection.Record `json:"records"`
		Balance  map[string]int      `json:"balance"`
		Dominant string              `json:"dominant"`
		Total    int                 `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(body.Records) != 3 {
		t.Errorf("records = %d, want 3", len(body.Records))
	}
	if body.Balance["fire"] != 2 {
		t.Errorf("fire balance = %d, want 2", body.Balance["fire"])
	}
	if body.Dominant != "fire" {
		t.Errorf("dominant = %s, want fire", body.Dominant)
	}
	if body.Total != 3 {
		t.Errorf("total = %d, want 3", body.Total)
	}
}

func TestHandleCollectionNotConfigured(t *testing.T) {
	srv := NewServer("0")

	req := httptest.NewRequest("GET", "/api/collection/today", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("Status = %d, want 503", resp.StatusCode)
	}
}

func TestHandleRetry(t *testing.T) {
	srv := NewServer("0")

	var gotDevice string
	var gotEntity uint64
	srv.OnRetry = func(device string, entity uint64) error {
		gotDevice = device
		gotEntity = entity
		return nil
	}

	req := httptest.NewRequest("POST", "/api/devices/phone-1/entities/42/retry", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	if gotDevice != "phone-1" || gotEntity != 42 {
		t.Errorf("retry callback got (%s, %d), want (phone-1, 42)", gotDevice, gotEntity)
	}
}

func TestHandleRetryErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		onRetry    func(string, uint64) error
		wantStatus int
	}{
		{
			name:       "invalid entity id",
			path:       "/api/devices/phone-1/entities/abc/retry",
			onRetry:    func(string, uint64) error { return nil },
			wantStatus: 400,
		},
		{
			name:       "not configured",
			path:       "/api/devices/phone-1/entities/1/retry",
			onRetry:    nil,
			wantStatus: 500,
		},
		{
			name:       "entity not found",
			path:       "/api/devices/phone-1/entities/9/retry",
			onRetry:    func(string, uint64) error { return tracking.ErrNotFound },
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer("0")
			srv.OnRetry = tt.onRetry

			req := httptest.NewRequest("POST", tt.path, nil)
			resp, err := srv.App().Test(req)
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAddLogAndGetLogs(t *testing.T) {
	srv := NewServer("0")

	srv.AddLog("collected", "phone-1: entity 3 is water (bottle)")

	req := httptest.NewRequest("GET", "/api/logs", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "entity 3 is water") {
		t.Errorf("logs = %s, want collected entry", body)
	}
}

func TestAnchorsWebSocket(t *testing.T) {
	srv := NewServer("18100")

	// Published before any client connects; should arrive as the seed
	srv.PublishAnchors("phone-1", 3, []tracking.EntityView{
		{ID: 1, Label: "cup", State: tracking.StateProcessing},
	})

	srv.StartAsync()
	defer srv.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18100/ws/anchors", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Seed message
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	var event AnchorEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if event.Device != "phone-1" || event.Generation != 3 {
		t.Errorf("seed event = %+v, want phone-1 generation 3", event)
	}

	// Live broadcast
	time.Sleep(50 * time.Millisecond)
	srv.PublishAnchors("phone-1", 4, nil)

	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if event.Generation != 4 {
		t.Errorf("broadcast generation = %d, want 4", event.Generation)
	}
}

func TestLogsWebSocket(t *testing.T) {
	srv := NewServer("18101")
	srv.AddLog("info", "before connect")

	srv.StartAsync()
	defer srv.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18101/ws/logs", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	var entry LogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if entry.Message != "before connect" {
		t.Errorf("seed log = %q, want 'before connect'", entry.Message)
	}
}

func TestCameraWebSocket(t *testing.T) {
	srv := NewServer("18102")

	srv.StartAsync()
	defer srv.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18102/ws/camera/phone-1", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	srv.PublishFrame("phone-1", jpeg)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	if msgType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", msgType)
	}
	if !bytes.Equal(data, jpeg) {
		t.Errorf("frame bytes = %v, want %v", data, jpeg)
	}
}
