package permissions

import (
	"context"
	"sync"
)

// Permission names mirror the platform permission identifiers the client asks for.
const (
	Camera        = "camera"
	FineLocation  = "access_fine_location"
	Storage       = "storage"
	Notifications = "notifications"
)

// Service checks and requests platform permissions. Request may show a dialog
// on a real device; the outcome is reported as a boolean grant either way.
type Service interface {
	Check(ctx context.Context, name string) (bool, error)
	Request(ctx context.Context, name string) (bool, error)
}

// Static is a Service whose grants are fixed up front (from configuration in
// the server, or directly in tests). A Request succeeds only for permissions
// in the granted set.
type Static struct {
	mu      sync.RWMutex
	granted map[string]bool
}

// NewStatic creates a Static service granting the given permissions
func NewStatic(granted []string) *Static {
	m := make(map[string]bool, len(granted))
	for _, name := range granted {
		m[name] = true
	}
	return &Static{granted: m}
}

// Check reports whether a permission is currently granted
func (s *Static) Check(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[name], nil
}

// Request resolves a permission request against the configured grants
func (s *Static) Request(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[name], nil
}

// SetGrant changes a single grant at runtime
func (s *Static) SetGrant(name string, granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted[name] = granted
}
