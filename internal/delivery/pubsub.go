package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

// alertEnvelope is the wire form of a delivered alert. The target area rides
// along in its string encoding so receivers can re-evaluate containment.
type alertEnvelope struct {
	Format          int    `json:"format"`
	SlotIndex       int    `json:"slot_index"`
	SubscriptionID  int    `json:"subscription_id"`
	SerialNumber    int    `json:"serial_number"`
	ServiceCategory int    `json:"service_category"`
	Body            string `json:"body"`
	Emergency       bool   `json:"emergency"`
	EtwsPrimary     *bool  `json:"etws_primary,omitempty"`
	Geometries      string `json:"geometries,omitempty"`
	ReceivedAt      string `json:"received_at"`
}

// PubSubSender delivers alerts by publishing to one Pub/Sub topic per
// recipient, the equivalent of sending an explicit broadcast to each
// configured receiver package.
type PubSubSender struct {
	client *pubsub.Client
	logger zerolog.Logger
}

// NewPubSubSender creates a Pub/Sub backed sender.
func NewPubSubSender(ctx context.Context, projectID string, logger zerolog.Logger) (*PubSubSender, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubSender{client: client, logger: logger}, nil
}

// Close closes the underlying Pub/Sub client.
func (s *PubSubSender) Close() error {
	return s.client.Close()
}

// Send publishes the message to every recipient topic. Failed recipients are
// collected into a joined error; successful ones are not rolled back.
func (s *PubSubSender) Send(ctx context.Context, msg *broadcast.Message, recipients []string, priority Priority) error {
	data, err := json.Marshal(toEnvelope(msg))
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	attrs := map[string]string{
		"priority":      priority.String(),
		"serial_number": strconv.Itoa(msg.SerialNumber),
	}

	var errs []error
	for _, recipient := range recipients {
		publisher := s.client.Publisher(recipient)
		result := publisher.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: attrs,
		})
		if _, err := result.Get(ctx); err != nil {
			s.logger.Error().Err(err).
				Str("recipient", recipient).
				Int("serial", msg.SerialNumber).
				Msg("failed to publish alert to recipient")
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipient, err))
			continue
		}

		s.logger.Debug().
			Str("recipient", recipient).
			Str("priority", priority.String()).
			Int("serial", msg.SerialNumber).
			Msg("alert published")
	}

	return errors.Join(errs...)
}

func toEnvelope(msg *broadcast.Message) alertEnvelope {
	env := alertEnvelope{
		Format:          int(msg.Format),
		SlotIndex:       msg.SlotIndex,
		SubscriptionID:  msg.SubscriptionID,
		SerialNumber:    msg.SerialNumber,
		ServiceCategory: msg.ServiceCategory,
		Body:            msg.Body,
		Emergency:       msg.Emergency,
		Geometries:      geo.Encode(msg.Area),
		ReceivedAt:      msg.ReceivedAt.Format(time.RFC3339Nano),
	}
	if msg.Etws != nil {
		primary := msg.Etws.Primary
		env.EtwsPrimary = &primary
	}
	return env
}

// Ensure PubSubSender implements Sender interface.
var _ Sender = (*PubSubSender)(nil)
