package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"photolog-backend/internal/models"
	"photolog-backend/internal/permissions"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notification is a locally surfaced notification
type Notification struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Handler receives notification events
type Handler func(Notification)

// Subscription is a registered listener. Release it on teardown or the
// handler keeps firing for the life of the gateway.
type Subscription struct {
	release func()
	once    sync.Once
}

// Release removes the listener
func (s *Subscription) Release() {
	s.once.Do(s.release)
}

// Gateway registers the process for push delivery and fans local
// notifications out to listeners.
type Gateway struct {
	mu        sync.Mutex
	perms     permissions.Service
	received  map[int]Handler
	responses map[int]Handler
	nextID    int

	tokenFetched bool
	token        string
}

// NewGateway creates a Gateway
func NewGateway(perms permissions.Service) *Gateway {
	return &Gateway{
		perms:     perms,
		received:  make(map[int]Handler),
		responses: make(map[int]Handler),
	}
}

// RegisterForDelivery obtains the push token for a device. On a non-physical
// device or a refused notification permission it warns the user and returns
// an empty token without an error, and the refusal sticks for the process.
// The token is fetched at most once per process and held in memory only.
func (g *Gateway) RegisterForDelivery(ctx context.Context, deviceID string, physical bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tokenFetched {
		return g.token, nil
	}

	if !physical {
		log.Warn().Str("device_id", deviceID).Msg("Must use physical device for push notifications")
		g.tokenFetched = true
		return "", nil
	}

	granted, err := g.perms.Check(ctx, permissions.Notifications)
	if err != nil {
		return "", fmt.Errorf("failed to check notification permission: %w", err)
	}
	if !granted {
		granted, err = g.perms.Request(ctx, permissions.Notifications)
		if err != nil {
			return "", fmt.Errorf("failed to request notification permission: %w", err)
		}
	}
	if !granted {
		log.Warn().Str("device_id", deviceID).Msg("Failed to get push token for push notifications")
		g.tokenFetched = true
		return "", nil
	}

	g.token = uuid.New().String()
	g.tokenFetched = true

	log.Info().Str("device_id", deviceID).Msg("Push token issued")
	return g.token, nil
}

// Token returns the registered push token, empty if registration has not
// happened or was refused
func (g *Gateway) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// ShowLocal surfaces a local notification and dispatches it to received
// listeners
func (g *Gateway) ShowLocal(title, body string) {
	n := Notification{Title: title, Body: body, At: time.Now()}

	log.Info().Str("title", title).Str("body", body).Msg("Local notification")

	for _, fn := range g.handlers(g.received) {
		fn(n)
	}
}

// DispatchResponse delivers a user's response to a notification (for example
// a tap reported back by the client) to response listeners
func (g *Gateway) DispatchResponse(n Notification) {
	for _, fn := range g.handlers(g.responses) {
		fn(n)
	}
}

// OnReceived registers a listener for surfaced notifications
func (g *Gateway) OnReceived(fn Handler) *Subscription {
	return g.subscribe(g.received, fn)
}

// OnResponse registers a listener for notification responses
func (g *Gateway) OnResponse(fn Handler) *Subscription {
	return g.subscribe(g.responses, fn)
}

func (g *Gateway) subscribe(m map[int]Handler, fn Handler) *Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	m[id] = fn
	return &Subscription{release: func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(m, id)
	}}
}

func (g *Gateway) handlers(m map[int]Handler) []Handler {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Handler, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// Confirmer is the secondary delivery channel for a capture attempt. A call
// settles exactly once: nil means delivered, an error means the attempt is
// recorded as failed. No retries.
type Confirmer interface {
	Confirm(ctx context.Context, deviceID string, rec *models.PhotoLog) error
}

// StubConfirmer is the simulated delivery channel: it always succeeds.
// Deployments without an APNs certificate run with this stub, so their push
// counters only ever record successes.
type StubConfirmer struct{}

// Confirm reports success unconditionally
func (StubConfirmer) Confirm(context.Context, string, *models.PhotoLog) error {
	return nil
}
