package repository

import (
	"context"
	"fmt"
	"time"

	"photolog-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoLogRepository handles database operations for capture records
type PhotoLogRepository struct {
	db *pgxpool.Pool
}

// NewPhotoLogRepository creates a new photo log repository
func NewPhotoLogRepository(db *pgxpool.Pool) *PhotoLogRepository {
	return &PhotoLogRepository{db: db}
}

// Create inserts a capture record. The timestamp is assigned by the database
// and written back into the record.
func (r *PhotoLogRepository) Create(ctx context.Context, rec *models.PhotoLog) (time.Time, error) {
	query := `
		INSERT INTO photo_logs (id, device_id, image_path, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.DeviceID, rec.ImagePath, rec.Latitude, rec.Longitude,
	).Scan(&createdAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create photo log: %w", err)
	}
	rec.CreatedAt = createdAt
	return createdAt, nil
}

// GetByID retrieves a capture record by ID
func (r *PhotoLogRepository) GetByID(ctx context.Context, id string) (*models.PhotoLog, error) {
	query := `
		SELECT id, device_id, image_path, latitude, longitude, created_at
		FROM photo_logs
		WHERE id = $1
	`
	var rec models.PhotoLog
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.DeviceID, &rec.ImagePath, &rec.Latitude,
		&rec.Longitude, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("photo log not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get photo log: %w", err)
	}
	return &rec, nil
}

// GetByDeviceID retrieves capture records for a device with pagination
func (r *PhotoLogRepository) GetByDeviceID(ctx context.Context, deviceID string, limit, offset int) ([]*models.PhotoLog, int, error) {
	countQuery := `SELECT COUNT(*) FROM photo_logs WHERE device_id = $1`
	var total int
	err := r.db.QueryRow(ctx, countQuery, deviceID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count photo logs: %w", err)
	}

	query := `
		SELECT id, device_id, image_path, latitude, longitude, created_at
		FROM photo_logs
		WHERE device_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get photo logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.PhotoLog
	for rows.Next() {
		var rec models.PhotoLog
		err := rows.Scan(
			&rec.ID, &rec.DeviceID, &rec.ImagePath, &rec.Latitude,
			&rec.Longitude, &rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan photo log: %w", err)
		}
		logs = append(logs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating photo logs: %w", err)
	}

	return logs, total, nil
}
