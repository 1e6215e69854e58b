// Package protocol defines the WebSocket message types for device-cloud
// communication. This package is shared between the capture app bridge and
// the fortuna coordinator service.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Device → Cloud messages
	TypeFrame MessageType = "frame" // Camera frame

	// Cloud → Device messages
	TypeAnchors   MessageType = "anchors"   // Tracked entity overlay snapshot
	TypeCollected MessageType = "collected" // Element collection event
	TypeConfig    MessageType = "config"    // Configuration update

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Device → Cloud Message Types
// =============================================================================

// FrameData contains a camera frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// =============================================================================
// Cloud → Device Message Types
// =============================================================================

// Anchor is the render-ready overlay state of one tracked entity
type Anchor struct {
	ID         uint64  `json:"id"`
	X          int     `json:"x"` // Box origin in detector coordinates
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	State      string  `json:"state"`             // "pending", "processing", "completed", "failed"
	Element    string  `json:"element,omitempty"` // Set once classification completes
}

// AnchorData contains the anchor snapshot produced by one processed frame
type AnchorData struct {
	Generation uint64   `json:"generation"`
	Anchors    []Anchor `json:"anchors"`
}

// CollectedData announces a newly collected element
type CollectedData struct {
	RecordID   string  `json:"record_id,omitempty"`
	Entity     uint64  `json:"entity"`
	Element    string  `json:"element"` // "wood", "fire", "earth", "metal", "water"
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ConfigUpdate contains configuration changes
type ConfigUpdate struct {
	Camera *CameraConfig `json:"camera,omitempty"`
}

// CameraConfig contains camera capture settings
type CameraConfig struct {
	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	Framerate int `json:"framerate,omitempty"`
	Quality   int `json:"quality,omitempty"` // JPEG quality, 1-100
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
