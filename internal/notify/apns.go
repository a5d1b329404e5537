package notify

import (
	"context"
	"errors"
	"fmt"

	"photolog-backend/internal/models"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// ErrNotRegistered means no push token has been registered for delivery
var ErrNotRegistered = errors.New("device not registered for push delivery")

// APNSConfirmer confirms a capture by pushing a notification to the
// registered device token through APNs.
type APNSConfirmer struct {
	client  *apns2.Client
	topic   string
	gateway *Gateway
}

// NewAPNSConfirmer loads the p12 certificate and builds an APNs client
func NewAPNSConfirmer(certFile, certPassword, topic string, production bool, gateway *Gateway) (*APNSConfirmer, error) {
	cert, err := certificate.FromP12File(certFile, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSConfirmer{client: client, topic: topic, gateway: gateway}, nil
}

// Confirm pushes a delivery confirmation for the capture record
func (c *APNSConfirmer) Confirm(ctx context.Context, deviceID string, rec *models.PhotoLog) error {
	token := c.gateway.Token()
	if token == "" {
		return ErrNotRegistered
	}

	p := payload.NewPayload().
		AlertTitle("Photo saved").
		AlertBody(fmt.Sprintf("Photo %s stored with location", rec.ID)).
		Sound("default")

	res, err := c.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: token,
		Topic:       c.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push delivery confirmation: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("delivery confirmation rejected: %s", res.Reason)
	}
	return nil
}
