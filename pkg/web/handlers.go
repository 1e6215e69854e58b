package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-fortuna/pkg/collection"
	"github.com/teslashibe/go-fortuna/pkg/tracking"
)

// Status describes the running service for the dashboard
type Status struct {
	Uptime        string                    `json:"uptime"`
	Classifier    string                    `json:"classifier"`
	Devices       []string                  `json:"devices"`
	Tracking      map[string]tracking.Stats `json:"tracking,omitempty"`
	AnchorClients int                       `json:"anchor_clients"`
	LogClients    int                       `json:"log_clients"`
}

// handleStatus returns the current service status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.anchorsMu.RLock()
	devices := make([]string, 0, len(s.anchors))
	for device := range s.anchors {
		devices = append(devices, device)
	}
	s.anchorsMu.RUnlock()
	sort.Strings(devices)

	status := Status{
		Uptime:        time.Since(s.start).Round(time.Second).String(),
		Classifier:    s.Classifier,
		Devices:       devices,
		AnchorClients: s.anchorHub.clientCount(),
		LogClients:    s.logHub.clientCount(),
	}
	if s.OnStats != nil {
		status.Tracking = s.OnStats()
	}

	return c.JSON(status)
}

// handleAnchors returns the latest snapshot for every device
func (s *Server) handleAnchors(c *fiber.Ctx) error {
	s.anchorsMu.RLock()
	defer s.anchorsMu.RUnlock()
	return c.JSON(s.anchors)
}

// handleDeviceAnchors returns the latest snapshot for one device
func (s *Server) handleDeviceAnchors(c *fiber.Ctx) error {
	device := c.Params("device")

	s.anchorsMu.RLock()
	event, ok := s.anchors[device]
	s.anchorsMu.RUnlock()

	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "no snapshot for device"})
	}
	return c.JSON(event)
}

// handleCollection returns the full collection journal
func (s *Server) handleCollection(c *fiber.Ctx) error {
	if s.Collection == nil {
		return c.Status(503).JSON(fiber.Map{"error": "collection store not configured"})
	}

	records, err := s.Collection.List()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"records": records,
		"count":   len(records),
	})
}

// handleCollectionToday returns today's records and element balance
func (s *Server) handleCollectionToday(c *fiber.Ctx) error {
	if s.Collection == nil {
		return c.Status(503).JSON(fiber.Map{"error": "collection store not configured"})
	}

	records, err := s.Collection.Today()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	balance := collection.Tally(records)

	return c.JSON(fiber.Map{
		"date":     time.Now().Format("2006-01-02"),
		"records":  records,
		"balance":  balance,
		"missing":  balance.Missing(),
		"dominant": balance.Dominant(),
		"total":    balance.Total(),
	})
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleRetry requeues a failed entity for classification
func (s *Server) handleRetry(c *fiber.Ctx) error {
	device := c.Params("device")

	entity, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid entity id"})
	}

	if s.OnRetry == nil {
		return c.Status(500).JSON(fiber.Map{"error": "retry not configured"})
	}

	if err := s.OnRetry(device, entity); err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("retry", fmt.Sprintf("%s: entity %d requeued", device, entity))

	return c.JSON(fiber.Map{"status": "requeued"})
}

// handleAnchorsWS handles websocket connections for live anchor snapshots
func (s *Server) handleAnchorsWS(c *websocket.Conn) {
	client := newWSClient(s.anchorHub, c)

	// Seed the new client with the latest snapshot per device
	s.anchorsMu.RLock()
	for _, event := range s.anchors {
		if data, err := json.Marshal(event); err == nil {
			client.queue(newJSONMessage(data))
		}
	}
	s.anchorsMu.RUnlock()

	client.run()
}

// handleLogsWS handles websocket connections for live logs
func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := newWSClient(s.logHub, c)

	// Send recent logs
	s.logsMu.RLock()
	for _, entry := range s.logs {
		if data, err := json.Marshal(entry); err == nil {
			client.queue(newJSONMessage(data))
		}
	}
	s.logsMu.RUnlock()

	client.run()
}

// handleCameraWS handles websocket connections for a device camera feed
func (s *Server) handleCameraWS(c *websocket.Conn) {
	device := c.Params("device")
	client := newWSClient(s.cameraHub(device), c)
	client.run()
}
