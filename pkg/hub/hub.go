// Package hub accepts WebSocket connections from capture devices and routes
// their camera frames into the tracking service.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-fortuna/internal/log"
	"github.com/teslashibe/go-fortuna/pkg/protocol"
)

// DeviceConnection represents a connected capture device
type DeviceConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the device
func (d *DeviceConnection) Send(msg *protocol.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from capture devices
type Hub struct {
	mu      sync.RWMutex
	devices map[string]*DeviceConnection

	// Callbacks
	onFrame      func(deviceID string, frame *protocol.FrameData)
	onDisconnect func(deviceID string)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewHub creates a new device hub
func NewHub() *Hub {
	return &Hub{
		devices: make(map[string]*DeviceConnection),
	}
}

// OnFrame sets the callback for incoming camera frames
func (h *Hub) OnFrame(callback func(deviceID string, frame *protocol.FrameData)) {
	h.mu.Lock()
	h.onFrame = callback
	h.mu.Unlock()
}

// OnDisconnect sets the callback fired after a device connection closes
func (h *Hub) OnDisconnect(callback func(deviceID string)) {
	h.mu.Lock()
	h.onDisconnect = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Device connection endpoint
	app.Get("/ws/device", websocket.New(h.handleDevice))
	app.Get("/ws/device/:id", websocket.New(h.handleDevice))
}

// handleDevice handles a device WebSocket connection
func (h *Hub) handleDevice(c *websocket.Conn) {
	// Get device ID from path or generate one
	deviceID := c.Params("id")
	if deviceID == "" {
		deviceID = generateDeviceID()
	}

	device := &DeviceConnection{
		ID:        deviceID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register device
	h.mu.Lock()
	h.devices[deviceID] = device
	deviceCount := len(h.devices)
	h.mu.Unlock()

	log.Info("device connected", "device", deviceID, "total", deviceCount)

	defer func() {
		h.mu.Lock()
		delete(h.devices, deviceID)
		deviceCount := len(h.devices)
		disconnectCb := h.onDisconnect
		h.mu.Unlock()

		log.Info("device disconnected", "device", deviceID, "total", deviceCount)

		if disconnectCb != nil {
			disconnectCb(deviceID)
		}
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("device read error", "device", deviceID, "error", err)
			return
		}

		device.mu.Lock()
		device.LastSeen = time.Now()
		device.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(deviceID, data)
	}
}

// handleMessage processes an incoming message from a device
func (h *Hub) handleMessage(deviceID string, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("message parse error", "device", deviceID, "error", err)
		return
	}

	h.mu.RLock()
	frameCb := h.onFrame
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		if frameCb != nil {
			frame, err := msg.GetFrameData()
			if err == nil {
				frameCb(deviceID, frame)
			}
		}

	case protocol.TypePing:
		// Respond with pong
		h.SendPong(deviceID, msg.Timestamp)
	}
}

// SendAnchors sends an anchor snapshot to a device
func (h *Hub) SendAnchors(deviceID string, generation uint64, anchors []protocol.Anchor) error {
	msg, err := protocol.NewAnchorsMessage(generation, anchors)
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// SendCollected sends a collection event to a device
func (h *Hub) SendCollected(deviceID string, collected protocol.CollectedData) error {
	msg, err := protocol.NewMessage(protocol.TypeCollected, collected)
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// SendConfig sends a camera configuration update to a device
func (h *Hub) SendConfig(deviceID string, camera *protocol.CameraConfig) error {
	msg, err := protocol.NewConfigMessage(camera)
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// SendPong sends a pong response to a device
func (h *Hub) SendPong(deviceID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// sendToDevice sends a message to a specific device
func (h *Hub) sendToDevice(deviceID string, msg *protocol.Message) error {
	h.mu.RLock()
	device, ok := h.devices[deviceID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "device not connected")
	}

	h.messagesSent.Add(1)
	return device.Send(msg)
}

// Broadcast sends a message to all connected devices
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	devices := make([]*DeviceConnection, 0, len(h.devices))
	for _, d := range h.devices {
		devices = append(devices, d)
	}
	h.mu.RUnlock()

	for _, device := range devices {
		h.messagesSent.Add(1)
		if err := device.Send(msg); err != nil {
			log.Debug("broadcast error", "device", device.ID, "error", err)
		}
	}
}

// GetDevice returns a device connection by ID
func (h *Hub) GetDevice(deviceID string) *DeviceConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.devices[deviceID]
}

// GetDevices returns all connected devices
func (h *Hub) GetDevices() []*DeviceConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	devices := make([]*DeviceConnection, 0, len(h.devices))
	for _, d := range h.devices {
		devices = append(devices, d)
	}
	return devices
}

// DeviceCount returns the number of connected devices
func (h *Hub) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// Stats contains hub statistics
type Stats struct {
	DeviceCount      int    `json:"device_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		DeviceCount:      h.DeviceCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
	}
}

// DeviceInfo contains info about a connected device
type DeviceInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetDeviceInfos returns info about all connected devices
func (h *Hub) GetDeviceInfos() []DeviceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]DeviceInfo, 0, len(h.devices))
	for _, d := range h.devices {
		d.mu.Lock()
		infos = append(infos, DeviceInfo{
			ID:        d.ID,
			Connected: d.Connected,
			LastSeen:  d.LastSeen,
		})
		d.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for device management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	devices := api.Group("/devices")

	// List connected devices
	devices.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"devices": h.GetDeviceInfos(),
			"count":   h.DeviceCount(),
		})
	})

	// Get hub stats
	devices.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Push camera settings to every connected device
	devices.Post("/config", func(c *fiber.Ctx) error {
		var req protocol.ConfigUpdate
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Camera == nil {
			return c.Status(400).JSON(fiber.Map{"error": "camera config required"})
		}

		msg, err := protocol.NewConfigMessage(req.Camera)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		h.Broadcast(msg)

		return c.JSON(fiber.Map{"status": "sent", "devices": h.DeviceCount()})
	})

	// Push camera settings to one device
	devices.Post("/:id/config", func(c *fiber.Ctx) error {
		deviceID := c.Params("id")

		var req protocol.ConfigUpdate
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Camera == nil {
			return c.Status(400).JSON(fiber.Map{"error": "camera config required"})
		}

		if err := h.SendConfig(deviceID, req.Camera); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{"status": "sent"})
	})
}

// generateDeviceID generates a unique device ID
func generateDeviceID() string {
	return time.Now().Format("20060102150405")
}
