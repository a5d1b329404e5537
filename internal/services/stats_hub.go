package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"photolog-backend/internal/notify"
	"photolog-backend/internal/stats"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// FeedMessage is a message on the live stats feed
type FeedMessage struct {
	Type         string               `json:"type"`
	Stats        *stats.Snapshot      `json:"stats,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Message      string               `json:"message,omitempty"`
}

// StatsHub manages WebSocket connections subscribed to the live stats feed
type StatsHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewStatsHub creates a new stats hub
func NewStatsHub() *StatsHub {
	return &StatsHub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a new WebSocket connection for a device
func (h *StatsHub) Register(deviceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existingConn, exists := h.connections[deviceID]; exists {
		existingConn.Close()
	}

	h.connections[deviceID] = conn

	log.Info().Str("device_id", deviceID).Msg("Stats feed connection registered")
}

// Unregister removes a WebSocket connection for a device
func (h *StatsHub) Unregister(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[deviceID]; exists {
		conn.Close()
		delete(h.connections, deviceID)
		log.Info().Str("device_id", deviceID).Msg("Stats feed connection unregistered")
	}
}

// SendToDevice sends a message to a specific device
func (h *StatsHub) SendToDevice(deviceID string, message FeedMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[deviceID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("device %s is not connected", deviceID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(deviceID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Broadcast sends a message to every connected device
func (h *StatsHub) Broadcast(message FeedMessage) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.SendToDevice(id, message); err != nil {
			log.Error().Err(err).Str("device_id", id).Msg("Failed to broadcast feed message")
		}
	}
}

// Close closes every connection
func (h *StatsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		conn.Close()
		delete(h.connections, id)
	}
}
