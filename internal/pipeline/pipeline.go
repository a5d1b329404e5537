package pipeline

import (
	"context"
	"fmt"
	"time"

	"photolog-backend/internal/location"
	"photolog-backend/internal/media"
	"photolog-backend/internal/models"
	"photolog-backend/internal/notify"
	"photolog-backend/internal/stats"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NotificationTitle is the title of the per-attempt summary notification
const NotificationTitle = "Photolog: Operation result"

// DocumentStore persists capture records. The timestamp is assigned on the
// store side.
type DocumentStore interface {
	Create(ctx context.Context, rec *models.PhotoLog) (time.Time, error)
}

// MediaStore is the durable app-owned media directory
type MediaStore interface {
	Copy(sourceURI, destName string) (string, error)
}

// Locator resolves the device's current coordinates
type Locator interface {
	Current(ctx context.Context, opts location.Options) (models.Coordinates, error)
}

// Notifier surfaces local notifications
type Notifier interface {
	ShowLocal(title, body string)
}

// Archiver copies stored media to remote archive storage; optional
type Archiver interface {
	Archive(ctx context.Context, localPath, key string) error
}

// Outcome describes what a single capture attempt did
type Outcome struct {
	ImagePath      string              `json:"image_path,omitempty"`
	Coordinates    *models.Coordinates `json:"coordinates,omitempty"`
	RecordID       string              `json:"record_id,omitempty"`
	WriteAttempted bool                `json:"write_attempted"`
	WriteOK        bool                `json:"write_ok"`
	PushOK         bool                `json:"push_ok"`
	Notified       bool                `json:"notified"`
}

// Runner executes capture attempts. Each run walks the same stages: store
// the acquired media locally, resolve the location, persist the record,
// confirm delivery, surface one summary notification. Runs are independent;
// nothing serializes concurrent attempts, and the shared counters commute.
type Runner struct {
	store     DocumentStore
	media     MediaStore
	confirmer notify.Confirmer
	notifier  Notifier
	stats     *stats.Store
	archiver  Archiver // may be nil
	locOpts   location.Options
}

// NewRunner creates a Runner. archiver may be nil when no remote archive is
// configured.
func NewRunner(
	store DocumentStore,
	mediaStore MediaStore,
	confirmer notify.Confirmer,
	notifier Notifier,
	statsStore *stats.Store,
	archiver Archiver,
	locOpts location.Options,
) *Runner {
	return &Runner{
		store:     store,
		media:     mediaStore,
		confirmer: confirmer,
		notifier:  notifier,
		stats:     statsStore,
		archiver:  archiver,
		locOpts:   locOpts,
	}
}

// Run executes one capture attempt for the acquired media result. A
// cancelled or failed acquisition returns immediately with no side effects.
// A failed local copy is terminal and surfaces as an error; later stage
// failures are recorded in the outcome and counters instead.
func (r *Runner) Run(ctx context.Context, deviceID string, res media.Result, loc Locator, name string) (*Outcome, error) {
	out := &Outcome{}

	switch res.Kind {
	case media.Cancelled:
		log.Debug().Str("device_id", deviceID).Msg("User cancelled image picker")
		return out, nil
	case media.Failed:
		log.Warn().Str("device_id", deviceID).Str("error", res.Message).Msg("Image picker error")
		return out, nil
	}

	imagePath, err := r.media.Copy(res.LocalURI, name)
	if err != nil {
		// Terminal for the attempt; nothing was recorded, no counter moves.
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to store media locally")
		return nil, fmt.Errorf("failed to store media locally: %w", err)
	}
	out.ImagePath = imagePath

	if r.archiver != nil {
		if err := r.archiver.Archive(ctx, imagePath, name); err != nil {
			// Archive is best effort; the local copy is the durable one.
			log.Warn().Err(err).Str("image_path", imagePath).Msg("Failed to archive media")
		}
	}

	coords, err := loc.Current(ctx, r.locOpts)
	if err != nil {
		// The photo stays stored, but a record needs both coordinates.
		log.Warn().Err(err).Str("device_id", deviceID).Msg("Location not resolved, record not written")
		return out, nil
	}
	out.Coordinates = &coords

	rec := &models.PhotoLog{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		ImagePath: imagePath,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}

	out.WriteAttempted = true
	if _, err := r.store.Create(ctx, rec); err != nil {
		r.stats.IncrementDocWriteFailed()
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to write capture record")
	} else {
		out.WriteOK = true
		out.RecordID = rec.ID
		r.stats.IncrementDocWriteSuccess()
	}

	if err := r.confirmer.Confirm(ctx, deviceID, rec); err != nil {
		r.stats.IncrementPushFailed()
		log.Error().Err(err).Str("device_id", deviceID).Msg("Delivery confirmation failed")
	} else {
		out.PushOK = true
		r.stats.IncrementPushSuccess()
	}

	r.notifier.ShowLocal(NotificationTitle, SummaryBody(out.WriteOK, out.PushOK))
	out.Notified = true

	return out, nil
}

// SummaryBody formats the per-attempt notification body. It reflects this
// single attempt, not the cumulative counters.
func SummaryBody(writeOK, pushOK bool) string {
	return fmt.Sprintf("Store: %d successful, %d failed\nPush: %d successful, %d failed",
		oneIf(writeOK), oneIf(!writeOK), oneIf(pushOK), oneIf(!pushOK))
}

func oneIf(b bool) int {
	if b {
		return 1
	}
	return 0
}
