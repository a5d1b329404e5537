package handlers

import (
	"encoding/json"
	"net/http"

	"photolog-backend/internal/middleware"
	"photolog-backend/internal/notify"
	"photolog-backend/internal/services"
	"photolog-backend/internal/stats"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// WebSocketHandler serves the live stats feed
type WebSocketHandler struct {
	hub           *services.StatsHub
	deviceService *services.DeviceService
	statsStore    *stats.Store
	gateway       *notify.Gateway
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.StatsHub,
	deviceService *services.DeviceService,
	statsStore *stats.Store,
	gateway *notify.Gateway,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		deviceService: deviceService,
		statsStore:    statsStore,
		gateway:       gateway,
	}
}

// HandleStatsFeed handles GET /ws/stats
func (h *WebSocketHandler) HandleStatsFeed(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	deviceID, err := middleware.ValidateWebSocketToken(token, h.deviceService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(deviceID, conn)
	defer h.hub.Unregister(deviceID)

	// Send the current counters so the client renders without waiting for
	// the next increment.
	snap := h.statsStore.Snapshot()
	if err := h.hub.SendToDevice(deviceID, services.FeedMessage{Type: "stats", Stats: &snap}); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to send initial stats")
		return
	}

	log.Info().Str("device_id", deviceID).Msg("Stats feed connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("device_id", deviceID).Msg("WebSocket error")
			}
			break
		}

		var msg services.FeedMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to parse WebSocket message")
			h.sendError(conn, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "notification_response":
			// The client reports the user tapped a surfaced notification.
			if msg.Notification != nil {
				h.gateway.DispatchResponse(*msg.Notification)
			}
		default:
			h.sendError(conn, "Unknown message type")
		}
	}
}

// sendError sends an error message to the WebSocket connection
func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	msg := services.FeedMessage{
		Type:    "error",
		Message: message,
	}
	data, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, data)
}
