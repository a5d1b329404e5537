package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"photolog-backend/internal/models"
	"photolog-backend/internal/permissions"
)

// ErrNoFix means the device has not reported a position yet
var ErrNoFix = errors.New("no position reported")

// ReportedStore holds the most recent position reported by each device. It
// is the server-side Source: the device's geolocation hardware produces the
// fix and the client ships it up with its requests.
type ReportedStore struct {
	mu    sync.RWMutex
	fixes map[string]models.Position
}

// NewReportedStore creates an empty ReportedStore
func NewReportedStore() *ReportedStore {
	return &ReportedStore{fixes: make(map[string]models.Position)}
}

// Report records a fix for a device
func (s *ReportedStore) Report(deviceID string, pos models.Position) {
	if pos.Time.IsZero() {
		pos.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[deviceID] = pos
}

// SourceFor returns a Source resolving fixes reported by the given device
func (s *ReportedStore) SourceFor(deviceID string) Source {
	return SourceFunc(func(ctx context.Context, _ Options) (models.Position, error) {
		if err := ctx.Err(); err != nil {
			return models.Position{}, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		pos, ok := s.fixes[deviceID]
		if !ok {
			return models.Position{}, ErrNoFix
		}
		return pos, nil
	})
}

// DeviceInfo looks up the platform and platform version for a device
type DeviceInfo func(ctx context.Context, deviceID string) (platform string, platformVersion int, err error)

// Registry hands out one Provider per device, all backed by the same
// reported-fix store and permission service.
type Registry struct {
	mu        sync.Mutex
	providers map[string]*Provider
	store     *ReportedStore
	perms     permissions.Service
	info      DeviceInfo
}

// NewRegistry creates a Registry
func NewRegistry(store *ReportedStore, perms permissions.Service, info DeviceInfo) *Registry {
	return &Registry{
		providers: make(map[string]*Provider),
		store:     store,
		perms:     perms,
		info:      info,
	}
}

// For returns the Provider for a device, creating it on first use
func (r *Registry) For(ctx context.Context, deviceID string) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[deviceID]; ok {
		return p, nil
	}

	platform, version, err := r.info(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	p := NewProvider(r.store.SourceFor(deviceID), r.perms, platform, version)
	r.providers[deviceID] = p
	return p, nil
}
