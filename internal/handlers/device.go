package handlers

import (
	"encoding/json"
	"net/http"

	"photolog-backend/internal/middleware"
	"photolog-backend/internal/notify"
	"photolog-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// DeviceHandler handles device registration and push enrollment
type DeviceHandler struct {
	deviceService *services.DeviceService
	gateway       *notify.Gateway
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(deviceService *services.DeviceService, gateway *notify.Gateway) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		gateway:       gateway,
	}
}

// RegisterDeviceRequest represents the request body for registering a device
type RegisterDeviceRequest struct {
	Platform        string `json:"platform"`
	PlatformVersion int    `json:"platform_version"`
	Physical        bool   `json:"physical"`
}

// CreateDevice handles POST /api/v1/devices
func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Platform == "" {
		respondError(w, "platform is required", http.StatusBadRequest)
		return
	}

	device, err := h.deviceService.RegisterDevice(ctx, req.Platform, req.PlatformVersion, req.Physical)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register device")
		respondError(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("device_id", device.ID).
		Str("code", device.Code).
		Str("platform", device.Platform).
		Msg("Device registered")

	respondJSON(w, http.StatusOK, device)
}

// RegisterPushResponse represents the push enrollment outcome
type RegisterPushResponse struct {
	PushToken string `json:"push_token,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// RegisterPush handles POST /api/v1/push/register
func (h *DeviceHandler) RegisterPush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := middleware.GetDeviceID(ctx)

	device, err := h.deviceService.GetDevice(ctx, deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to load device")
		respondError(w, "Device not found", http.StatusNotFound)
		return
	}

	token, err := h.gateway.RegisterForDelivery(ctx, deviceID, device.Physical)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to register for push delivery")
		respondError(w, "Failed to register for push delivery", http.StatusInternalServerError)
		return
	}

	resp := RegisterPushResponse{PushToken: token}
	if token == "" {
		// Registration refusals surface as a user-visible warning, not an error.
		resp.Warning = "Push notifications are unavailable for this device"
	}

	respondJSON(w, http.StatusOK, resp)
}
