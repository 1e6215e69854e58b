// Package web provides the live dashboard for the fortuna coordinator:
// REST endpoints for snapshots and the collection journal, plus websocket
// feeds for anchors, logs, and per-device camera frames.
package web

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-fortuna/internal/log"
	"github.com/teslashibe/go-fortuna/pkg/collection"
	"github.com/teslashibe/go-fortuna/pkg/tracking"
)

// AnchorEvent is one device's render-ready snapshot, broadcast after every
// processed frame.
type AnchorEvent struct {
	Device     string                `json:"device"`
	Generation uint64                `json:"generation"`
	Entities   []tracking.EntityView `json:"entities"`
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, collected, retry, error
	Message string `json:"message"`
}

// Server is the dashboard server
type Server struct {
	app  *fiber.App
	port string

	start time.Time

	// Classifier backend name shown on /api/status
	Classifier string

	// Latest anchor snapshot per device
	anchors   map[string]AnchorEvent
	anchorsMu sync.RWMutex

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Broadcast hubs for dashboard sockets
	anchorHub *wsHub
	logHub    *wsHub

	// Per-device camera feeds, created on first frame
	cameraHubs   map[string]*wsHub
	cameraHubsMu sync.Mutex

	// Retry callback installed by the coordinator service
	OnRetry func(device string, entity uint64) error

	// Per-device tracking stats provider
	OnStats func() map[string]tracking.Stats

	// Collection journal backing /api/collection
	Collection collection.Store
}

// NewServer creates a new dashboard server
func NewServer(port string) *Server {
	s := &Server{
		port:       port,
		start:      time.Now(),
		anchors:    make(map[string]AnchorEvent),
		logs:       make([]LogEntry, 0, 500),
		anchorHub:  newWSHub("anchors"),
		logHub:     newWSHub("logs"),
		cameraHubs: make(map[string]*wsHub),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Fortuna Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/anchors", s.handleAnchors)
	api.Get("/anchors/:device", s.handleDeviceAnchors)
	api.Get("/collection", s.handleCollection)
	api.Get("/collection/today", s.handleCollectionToday)
	api.Get("/logs", s.handleGetLogs)
	api.Post("/devices/:device/entities/:id/retry", s.handleRetry)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/anchors", websocket.New(s.handleAnchorsWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera/:device", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the underlying fiber app so the service can mount additional
// routes (device hub sockets, health, metrics) on the same listener.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the dashboard server
func (s *Server) Start() error {
	log.Info("dashboard listening", "port", s.port)

	// Start broadcast hubs
	go s.anchorHub.run()
	go s.logHub.run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the dashboard server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server error", "error", err)
		}
	}()
}

// PublishAnchors stores the latest snapshot for a device and broadcasts it
// to anchor subscribers.
func (s *Server) PublishAnchors(device string, generation uint64, entities []tracking.EntityView) {
	event := AnchorEvent{
		Device:     device,
		Generation: generation,
		Entities:   entities,
	}

	s.anchorsMu.Lock()
	s.anchors[device] = event
	s.anchorsMu.Unlock()

	s.anchorHub.sendJSON(event)
}

// RemoveDevice drops the stored snapshot for a disconnected device.
func (s *Server) RemoveDevice(device string) {
	s.anchorsMu.Lock()
	delete(s.anchors, device)
	s.anchorsMu.Unlock()
}

// PublishFrame streams a device camera frame to its dashboard viewers.
func (s *Server) PublishFrame(device string, jpeg []byte) {
	s.cameraHub(device).sendBinary(jpeg)
}

// cameraHub returns the camera feed hub for a device, creating it on first use.
func (s *Server) cameraHub(device string) *wsHub {
	s.cameraHubsMu.Lock()
	defer s.cameraHubsMu.Unlock()

	h, ok := s.cameraHubs[device]
	if !ok {
		h = newWSHub("camera:" + device)
		go h.run()
		s.cameraHubs[device] = h
	}
	return h
}

// AddLog adds a log entry and broadcasts it to log subscribers
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > 500 {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.sendJSON(entry)
}

// Shutdown gracefully stops the dashboard server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithContext stops the server, abandoning in-flight requests
// when the context expires.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
