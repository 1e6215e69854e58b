package web

import (
	"encoding/json"
	"sync"

	"github.com/teslashibe/go-fortuna/internal/log"
)

// wsMessageKind indicates the websocket payload format
type wsMessageKind int

const (
	// jsonMessage is a JSON-encoded payload
	jsonMessage wsMessageKind = iota
	// binaryMessage is raw binary data (e.g., JPEG frames)
	binaryMessage
)

// wsMessage is a payload queued for broadcast to dashboard clients
type wsMessage struct {
	kind wsMessageKind
	data []byte
}

func newJSONMessage(data []byte) wsMessage {
	return wsMessage{kind: jsonMessage, data: data}
}

func newBinaryMessage(data []byte) wsMessage {
	return wsMessage{kind: binaryMessage, data: data}
}

// wsHub maintains one set of dashboard socket clients and fans messages out
// to them using the channel-based broadcast pattern.
type wsHub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*wsClient]bool

	// Inbound messages to broadcast
	broadcast chan wsMessage

	// Register requests from clients
	register chan *wsClient

	// Unregister requests from clients
	unregister chan *wsClient

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex
}

func newWSHub(name string) *wsHub {
	return &wsHub{
		name:       name,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan wsMessage, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

// run drives the hub's register/unregister/broadcast loop.
// It should be called in a goroutine.
func (h *wsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("dashboard client connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("dashboard client disconnected", "hub", h.name, "total", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full - they cannot keep up
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow dashboard client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// send queues a message for broadcast to all connected clients
func (h *wsHub) send(msg wsMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Broadcast channel full - drop message
		log.Warn("broadcast channel full, dropping message", "hub", h.name)
	}
}

// sendJSON encodes and broadcasts a JSON message
func (h *wsHub) sendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.send(newJSONMessage(data))
	return nil
}

// sendBinary broadcasts binary data (e.g., camera frames)
func (h *wsHub) sendBinary(data []byte) {
	h.send(newBinaryMessage(data))
}

// clientCount returns the number of connected clients
func (h *wsHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
