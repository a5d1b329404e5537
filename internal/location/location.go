package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photolog-backend/internal/models"
	"photolog-backend/internal/permissions"
)

var (
	// ErrPermissionDenied means fine-location permission was not granted
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrTimeout means no fix arrived within the request timeout
	ErrTimeout = errors.New("location request timed out")
	// ErrUnavailable covers underlying device/service failures
	ErrUnavailable = errors.New("location unavailable")
)

// Android releases below this version never showed a runtime permission
// dialog, so permission is treated as granted on them.
const legacyAndroidVersion = 23

// Options control a single location request
type Options struct {
	HighAccuracy         bool
	Timeout              time.Duration
	MaxAge               time.Duration
	DistanceFilterMeters float64
}

// Source produces geolocation fixes
type Source interface {
	CurrentPosition(ctx context.Context, opts Options) (models.Position, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context, opts Options) (models.Position, error)

// CurrentPosition calls f
func (f SourceFunc) CurrentPosition(ctx context.Context, opts Options) (models.Position, error) {
	return f(ctx, opts)
}

// Provider is a permission-gated accessor over a Source. Overlapping calls
// are queued behind a mutex, so each caller sees its request settle exactly
// once and concurrent capture runs never share an in-flight request.
type Provider struct {
	mu              sync.Mutex
	source          Source
	perms           permissions.Service
	platform        string
	platformVersion int
	lastFix         *models.Position
}

// NewProvider creates a Provider for a device on the given platform
func NewProvider(source Source, perms permissions.Service, platform string, platformVersion int) *Provider {
	return &Provider{
		source:          source,
		perms:           perms,
		platform:        platform,
		platformVersion: platformVersion,
	}
}

// HasPermission checks fine-location permission, requesting it if not yet
// granted. Legacy Android versions short-circuit to granted.
func (p *Provider) HasPermission(ctx context.Context) (bool, error) {
	if p.platform == "android" && p.platformVersion > 0 && p.platformVersion < legacyAndroidVersion {
		return true, nil
	}

	granted, err := p.perms.Check(ctx, permissions.FineLocation)
	if err != nil {
		return false, fmt.Errorf("failed to check location permission: %w", err)
	}
	if granted {
		return true, nil
	}

	granted, err = p.perms.Request(ctx, permissions.FineLocation)
	if err != nil {
		return false, fmt.Errorf("failed to request location permission: %w", err)
	}
	return granted, nil
}

// Current resolves the device's current coordinates. A cached fix no older
// than opts.MaxAge is returned without touching the source.
func (p *Provider) Current(ctx context.Context, opts Options) (models.Coordinates, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	granted, err := p.HasPermission(ctx)
	if err != nil {
		return models.Coordinates{}, err
	}
	if !granted {
		return models.Coordinates{}, ErrPermissionDenied
	}

	if p.lastFix != nil && opts.MaxAge > 0 && time.Since(p.lastFix.Time) <= opts.MaxAge {
		return p.lastFix.Coordinates, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pos, err := p.source.CurrentPosition(ctx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Coordinates{}, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout)
		}
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if pos.Time.IsZero() {
		pos.Time = time.Now()
	}
	p.lastFix = &pos

	return pos.Coordinates, nil
}
