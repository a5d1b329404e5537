package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photolog-backend/internal/permissions"
)

func TestRegisterForDeliveryPhysicalDevice(t *testing.T) {
	g := NewGateway(permissions.NewStatic([]string{permissions.Notifications}))

	token, err := g.RegisterForDelivery(context.Background(), "dev-1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// At most one token per process: a second call returns the same one.
	again, err := g.RegisterForDelivery(context.Background(), "dev-1", true)
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.Equal(t, token, g.Token())
}

func TestRegisterForDeliveryNonPhysicalDevice(t *testing.T) {
	g := NewGateway(permissions.NewStatic([]string{permissions.Notifications}))

	// Warns but does not error.
	token, err := g.RegisterForDelivery(context.Background(), "sim-1", false)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRegisterForDeliveryPermissionRefused(t *testing.T) {
	g := NewGateway(permissions.NewStatic(nil))

	token, err := g.RegisterForDelivery(context.Background(), "dev-1", true)
	require.NoError(t, err)
	assert.Empty(t, token)

	// The refusal sticks even if the grant appears later in the process.
	token, err = g.RegisterForDelivery(context.Background(), "dev-1", true)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestShowLocalDispatchesToReceivedListeners(t *testing.T) {
	g := NewGateway(permissions.NewStatic(nil))

	var got []Notification
	sub := g.OnReceived(func(n Notification) { got = append(got, n) })

	g.ShowLocal("title", "body")
	require.Len(t, got, 1)
	assert.Equal(t, "title", got[0].Title)
	assert.Equal(t, "body", got[0].Body)

	sub.Release()
	g.ShowLocal("title", "body")
	assert.Len(t, got, 1)

	// Releasing twice is harmless.
	sub.Release()
}

func TestDispatchResponse(t *testing.T) {
	g := NewGateway(permissions.NewStatic(nil))

	var responses int
	var received int
	respSub := g.OnResponse(func(Notification) { responses++ })
	recvSub := g.OnReceived(func(Notification) { received++ })
	defer respSub.Release()
	defer recvSub.Release()

	g.DispatchResponse(Notification{Title: "t"})
	assert.Equal(t, 1, responses)
	assert.Equal(t, 0, received)
}

func TestStubConfirmerAlwaysSucceeds(t *testing.T) {
	var c Confirmer = StubConfirmer{}
	assert.NoError(t, c.Confirm(context.Background(), "dev-1", nil))
}
