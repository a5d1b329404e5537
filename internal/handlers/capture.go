package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"photolog-backend/internal/location"
	"photolog-backend/internal/media"
	"photolog-backend/internal/middleware"
	"photolog-backend/internal/models"
	"photolog-backend/internal/pipeline"
	"photolog-backend/internal/repository"
	"photolog-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 32 << 20

// CaptureHandler handles capture attempts and the photo log listing
type CaptureHandler struct {
	runner    *pipeline.Runner
	photoRepo *repository.PhotoLogRepository
	registry  *location.Registry
	reported  *location.ReportedStore
	acquirer  func(media.Picker) *media.Acquirer
	s3        *storage.S3Store // nil when the archive is disabled
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(
	runner *pipeline.Runner,
	photoRepo *repository.PhotoLogRepository,
	registry *location.Registry,
	reported *location.ReportedStore,
	acquirer func(media.Picker) *media.Acquirer,
	s3 *storage.S3Store,
) *CaptureHandler {
	return &CaptureHandler{
		runner:    runner,
		photoRepo: photoRepo,
		registry:  registry,
		reported:  reported,
		acquirer:  acquirer,
		s3:        s3,
	}
}

// uploadPicker adapts one parsed upload request to the media.Picker
// interface: the client already ran its picker, the request carries the
// outcome.
type uploadPicker struct {
	resp models.PickerResponse
}

func (p uploadPicker) LaunchCamera(context.Context, media.PickerOptions) (models.PickerResponse, error) {
	return p.resp, nil
}

func (p uploadPicker) LaunchLibrary(context.Context, media.PickerOptions) (models.PickerResponse, error) {
	return p.resp, nil
}

// UploadCapture handles POST /api/v1/captures
func (h *CaptureHandler) UploadCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := middleware.GetDeviceID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	resp, tmpPath, err := h.pickerResponse(r)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to buffer upload")
		respondError(w, "Failed to buffer upload", http.StatusInternalServerError)
		return
	}
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}

	// A fix shipped with the upload becomes the device's current position.
	if lat, lon, ok := parseCoordinates(r); ok {
		h.reported.Report(deviceID, models.Position{
			Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
		})
	}

	acquirer := h.acquirer(uploadPicker{resp: resp})
	var result media.Result
	if r.FormValue("source") == "camera" {
		result, err = acquirer.CaptureFromCamera(ctx)
	} else {
		result, err = acquirer.PickFromLibrary(ctx)
	}
	if err != nil {
		if errors.Is(err, media.ErrPermissionDenied) {
			respondError(w, "Media permission denied", http.StatusForbidden)
			return
		}
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to acquire media")
		respondError(w, "Failed to acquire media", http.StatusInternalServerError)
		return
	}

	loc, err := h.registry.For(ctx, deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to resolve location provider")
		respondError(w, "Device not found", http.StatusNotFound)
		return
	}

	outcome, err := h.runner.Run(ctx, deviceID, result, loc, storage.MediaFilename())
	if err != nil {
		respondError(w, "Failed to store capture", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

// pickerResponse rebuilds the device picker outcome from the request. An
// uploaded file wins; otherwise cancelled/error form fields describe why
// there is none. Returns the temp file path when a file was uploaded.
func (h *CaptureHandler) pickerResponse(r *http.Request) (models.PickerResponse, string, error) {
	file, _, err := r.FormFile("photo")
	if err == nil {
		defer file.Close()

		tmp, err := os.CreateTemp("", "upload_*.jpg")
		if err != nil {
			return models.PickerResponse{}, "", err
		}
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return models.PickerResponse{}, "", err
		}
		tmp.Close()

		return models.PickerResponse{
			Assets: []models.PickerAsset{{URI: tmp.Name()}},
		}, tmp.Name(), nil
	}

	return models.PickerResponse{
		Cancelled:    r.FormValue("cancelled") == "true",
		ErrorCode:    r.FormValue("error_code"),
		ErrorMessage: r.FormValue("error_message"),
	}, "", nil
}

func parseCoordinates(r *http.Request) (lat, lon float64, ok bool) {
	latStr := r.FormValue("latitude")
	lonStr := r.FormValue("longitude")
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// photoItem is a listed capture record, optionally with a download URL
type photoItem struct {
	*models.PhotoLog
	URL string `json:"url,omitempty"`
}

// GetPhotos handles GET /api/v1/photos
func (h *CaptureHandler) GetPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := middleware.GetDeviceID(ctx)

	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil {
			offset = parsedOffset
		}
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.photoRepo.GetByDeviceID(ctx, deviceID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to get photo logs")
		respondError(w, "Failed to get photos", http.StatusInternalServerError)
		return
	}

	items := make([]photoItem, 0, len(logs))
	for _, rec := range logs {
		item := photoItem{PhotoLog: rec}
		if h.s3 != nil {
			url, err := h.s3.PresignGet(ctx, filepath.Base(rec.ImagePath), 5*time.Minute)
			if err != nil {
				log.Warn().Err(err).Str("record_id", rec.ID).Msg("Failed to presign archive URL")
			} else {
				item.URL = url
			}
		}
		items = append(items, item)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": items,
		"total":  total,
	})
}
