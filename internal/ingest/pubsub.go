// Package ingest receives decoded broadcast messages and control events from
// Pub/Sub and feeds them into the dispatch orchestrator.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/internal/dispatch"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

// Dispatcher is the slice of the orchestrator the subscriber needs.
type Dispatcher interface {
	HandleMessage(ctx context.Context, msg *broadcast.Message) (dispatch.Outcome, error)
	NoteAirplaneMode()
}

// SettingsInvalidator drops cached dispatch settings on subscription changes.
type SettingsInvalidator interface {
	Invalidate()
}

// Subscriber pulls alert and control envelopes from a Pub/Sub subscription.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       Dispatcher
	settings         SettingsInvalidator
	logger           zerolog.Logger
}

// Config holds configuration for the ingest subscriber.
type Config struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       Dispatcher
	// Settings is optional; when set, settings_changed events invalidate it.
	Settings SettingsInvalidator
	Logger   zerolog.Logger
}

// Envelope is the wire form of an ingest event. Alert fields are only set for
// type "alert".
type Envelope struct {
	Type  string        `json:"type"`
	Alert *AlertPayload `json:"alert,omitempty"`
}

// AlertPayload carries one decoded broadcast message. Geometries arrive in the
// delimited string encoding.
type AlertPayload struct {
	Format          int    `json:"format"`
	SlotIndex       int    `json:"slot_index"`
	SubscriptionID  int    `json:"subscription_id"`
	SerialNumber    int    `json:"serial_number"`
	ServiceCategory int    `json:"service_category"`
	Body            string `json:"body"`
	Emergency       bool   `json:"emergency"`
	EtwsPrimary     *bool  `json:"etws_primary,omitempty"`
	Geometries      string `json:"geometries,omitempty"`
	MaxWaitSec      *int   `json:"max_wait_sec,omitempty"`
	ReceivedAt      string `json:"received_at,omitempty"`
}

// Event types carried in Envelope.Type.
const (
	EventAlert           = "alert"
	EventAirplaneMode    = "airplane_mode"
	EventSettingsChanged = "settings_changed"
)

// NewSubscriber creates the ingest subscriber.
func NewSubscriber(ctx context.Context, cfg Config) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Keep ordering pressure low; dispatch parks on location waits.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		settings:         cfg.Settings,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing envelopes. Blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting ingest subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

func (s *Subscriber) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := s.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received ingest envelope")

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		// Malformed envelopes can never succeed; drop them.
		logger.Error().Err(err).Msg("failed to parse envelope, dropping")
		msg.Ack()
		return
	}

	switch env.Type {
	case EventAlert:
		s.handleAlert(ctx, env.Alert, msg, logger)
	case EventAirplaneMode:
		s.dispatcher.NoteAirplaneMode()
		msg.Ack()
	case EventSettingsChanged:
		if s.settings != nil {
			s.settings.Invalidate()
			logger.Info().Msg("dispatch settings cache invalidated")
		}
		msg.Ack()
	default:
		logger.Warn().Str("type", env.Type).Msg("unknown event type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	logger.Debug().
		Str("type", env.Type).
		Dur("duration", time.Since(startTime)).
		Msg("envelope processed")
}

func (s *Subscriber) handleAlert(ctx context.Context, payload *AlertPayload, msg *pubsub.Message, logger zerolog.Logger) {
	if payload == nil {
		logger.Error().Msg("alert envelope without payload, dropping")
		msg.Ack()
		return
	}

	alert, err := ToMessage(payload, msg.PublishTime)
	if err != nil {
		logger.Warn().Err(err).Msg("alert payload partially decoded")
	}

	outcome, err := s.dispatcher.HandleMessage(ctx, alert)
	if err != nil {
		// Persistence failed; redelivery gives the store another chance.
		logger.Error().Err(err).Msg("dispatch failed, requeueing alert")
		msg.Nack()
		return
	}

	logger.Info().
		Int("serial", alert.SerialNumber).
		Str("outcome", outcome.String()).
		Msg("alert dispatched")
	msg.Ack()
}

// ToMessage converts a wire payload into a broadcast message. A non-nil error
// reports geometry entries that failed to decode; the returned message is
// still usable with the decodable portion of the area.
func ToMessage(payload *AlertPayload, publishTime time.Time) (*broadcast.Message, error) {
	receivedAt := publishTime
	if payload.ReceivedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, payload.ReceivedAt); err == nil {
			receivedAt = ts
		}
	}

	maxWait := broadcast.MaxWaitNotSet
	if payload.MaxWaitSec != nil {
		maxWait = *payload.MaxWaitSec
	}

	msg := &broadcast.Message{
		Format:          broadcast.Format(payload.Format),
		SlotIndex:       payload.SlotIndex,
		SubscriptionID:  payload.SubscriptionID,
		SerialNumber:    payload.SerialNumber,
		ServiceCategory: payload.ServiceCategory,
		Body:            payload.Body,
		Emergency:       payload.Emergency,
		MaxWaitSec:      maxWait,
		ReceivedAt:      receivedAt,
	}
	if payload.EtwsPrimary != nil {
		msg.Etws = &broadcast.EtwsInfo{Primary: *payload.EtwsPrimary}
	}

	var err error
	if payload.Geometries != "" {
		msg.Area, err = geo.Decode(payload.Geometries)
	}
	return msg, err
}
