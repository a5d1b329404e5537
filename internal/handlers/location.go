package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"photolog-backend/internal/location"
	"photolog-backend/internal/middleware"
	"photolog-backend/internal/models"
	"photolog-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// LocationHandler serves location fetches and position reports
type LocationHandler struct {
	registry *location.Registry
	reported *location.ReportedStore
	store    *storage.LocalStore
	opts     location.Options
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(registry *location.Registry, reported *location.ReportedStore, store *storage.LocalStore, opts location.Options) *LocationHandler {
	return &LocationHandler{
		registry: registry,
		reported: reported,
		store:    store,
		opts:     opts,
	}
}

// ReportLocationRequest represents a device-reported fix
type ReportLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// ReportLocation handles POST /api/v1/location/report
func (h *LocationHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	var req ReportLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.reported.Report(deviceID, models.Position{
		Coordinates: models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude},
		Accuracy:    req.Accuracy,
	})

	w.WriteHeader(http.StatusNoContent)
}

// GetLocation handles GET /api/v1/location. On success the fix is also
// written to a location_<timestamp>.txt file in the media directory, the way
// the client's standalone location button did.
func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := middleware.GetDeviceID(ctx)

	loc, err := h.registry.For(ctx, deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to resolve location provider")
		respondError(w, "Device not found", http.StatusNotFound)
		return
	}

	coords, err := loc.Current(ctx, h.opts)
	if err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("Location fetch failed")
		switch {
		case errors.Is(err, location.ErrPermissionDenied):
			respondError(w, "Location permission denied", http.StatusForbidden)
		case errors.Is(err, location.ErrTimeout):
			respondError(w, "Location request timed out", http.StatusGatewayTimeout)
		default:
			respondError(w, "Location unavailable", http.StatusServiceUnavailable)
		}
		return
	}

	content := fmt.Sprintf("Longitude: %v\nLatitude: %v", coords.Longitude, coords.Latitude)
	name := fmt.Sprintf("location_%d.txt", time.Now().UnixMilli())
	if path, err := h.store.WriteText(name, content); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to save location file")
	} else {
		log.Info().Str("path", path).Msg("Location saved")
	}

	respondJSON(w, http.StatusOK, coords)
}
