// Package dispatch runs the per-message control flow: duplicate check,
// persistence, geofence decision and final delivery.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/internal/delivery"
	"github.com/alertgrid/alertgrid/internal/location"
	"github.com/alertgrid/alertgrid/internal/store"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

// Outcome is the terminal state of a message dispatch.
type Outcome int

const (
	// OutcomeAborted means dispatch failed before reaching a terminal state.
	OutcomeAborted Outcome = iota
	// OutcomeSuppressedDuplicate means the message duplicated a stored one.
	OutcomeSuppressedDuplicate
	// OutcomeSuppressedGeofence means the device was outside the target area.
	OutcomeSuppressedGeofence
	// OutcomeDelivered means the message was sent to its recipients.
	OutcomeDelivered
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuppressedDuplicate:
		return "suppressed_duplicate"
	case OutcomeSuppressedGeofence:
		return "suppressed_geofence"
	case OutcomeDelivered:
		return "delivered"
	default:
		return "aborted"
	}
}

// LocationRequester is the slice of the location coordinator the orchestrator
// needs. Satisfied by *location.Coordinator.
type LocationRequester interface {
	RequestLocation(cb location.Callback, maxWait time.Duration)
}

// Config holds the collaborators for creating an Orchestrator.
type Config struct {
	Store     store.Repository
	Detector  *broadcast.Detector
	Locations LocationRequester
	Sender    delivery.Sender
	Resolver  Resolver
	Logger    zerolog.Logger
}

// Orchestrator sequences persistence, duplicate detection, geofencing and
// delivery for each incoming message. A single instance serves concurrent
// messages; per-message flow runs on the caller's goroutine with the location
// wait as the only suspension point.
type Orchestrator struct {
	store     store.Repository
	detector  *broadcast.Detector
	locations LocationRequester
	sender    delivery.Sender
	resolver  Resolver
	logger    zerolog.Logger
	tracer    trace.Tracer

	// queryBreaker protects the dedup window query; when the store is
	// unhealthy the check fails open so alerts are never lost to it.
	queryBreaker *gobreaker.CircuitBreaker[[]*broadcast.Message]

	// dedupEnabled is a debug-only escape hatch, toggled via the admin API.
	dedupEnabled atomic.Bool

	mu               sync.Mutex
	lastAirplaneMode time.Time
	startedAt        time.Time

	metrics *Metrics
}

// New creates an orchestrator from its collaborators.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:     cfg.Store,
		detector:  cfg.Detector,
		locations: cfg.Locations,
		sender:    cfg.Sender,
		resolver:  cfg.Resolver,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("alertgrid/dispatch"),
		startedAt: time.Now(),
		metrics:   &Metrics{},
	}
	o.dedupEnabled.Store(true)
	o.queryBreaker = gobreaker.NewCircuitBreaker[[]*broadcast.Message](gobreaker.Settings{
		Name:    "dedup-window-query",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return o
}

// HandleMessage runs the full dispatch flow for one decoded message and
// returns its terminal state. A non-nil error means persistence failed and
// nothing was delivered; the caller may redeliver the message.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg *broadcast.Message) (Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "dispatch.handle_message", trace.WithAttributes(
		attribute.Int("alert.serial_number", msg.SerialNumber),
		attribute.Int("alert.service_category", msg.ServiceCategory),
		attribute.Bool("alert.emergency", msg.Emergency),
	))
	defer span.End()

	o.metrics.record(func(m *Metrics) { m.Received++ })

	logger := o.logger.With().
		Int("serial", msg.SerialNumber).
		Int("category", msg.ServiceCategory).
		Int("slot", msg.SlotIndex).
		Logger()

	settings, err := o.resolver.Resolve(ctx, msg.SubscriptionID)
	if err != nil {
		logger.Warn().Err(err).Msg("settings resolution failed, using defaults")
		settings = DefaultSettings()
	}

	if o.isDuplicate(ctx, msg, settings, logger) {
		logger.Info().Msg("duplicate message suppressed")
		o.metrics.record(func(m *Metrics) { m.Duplicates++ })
		return OutcomeSuppressedDuplicate, nil
	}

	recordID, err := o.insertWithRetry(ctx, msg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to persist message, aborting dispatch")
		o.metrics.record(func(m *Metrics) { m.InsertFailures++ })
		return OutcomeAborted, err
	}
	msg.RecordID = recordID

	if !msg.NeedsGeoFence() {
		logger.Debug().Msg("no geo-fencing required, broadcasting directly")
		o.deliver(ctx, msg, recordID, settings, logger)
		return OutcomeDelivered, nil
	}

	maxWait := time.Duration(msg.MaxWaitSec) * time.Second
	if msg.MaxWaitSec == broadcast.MaxWaitNotSet {
		maxWait = settings.DefaultMaxWait
	}

	logger.Debug().Dur("max_wait", maxWait).Msg("requesting location for geo-fencing")
	point := o.awaitLocation(ctx, maxWait)

	if point == nil {
		// Unknown location must never silently suppress an alert.
		logger.Debug().Msg("location unavailable, broadcasting without geo-fence decision")
		o.metrics.record(func(m *Metrics) { m.GeofencePassThrough++ })
		o.deliver(ctx, msg, recordID, settings, logger)
		return OutcomeDelivered, nil
	}

	if !msg.Area.Contains(*point) {
		logger.Debug().
			Float64("lat", point.Lat).
			Float64("lng", point.Lng).
			Msg("device location outside broadcast area, suppressing")
		o.metrics.record(func(m *Metrics) { m.GeofenceSuppressed++ })
		span.SetAttributes(attribute.String("dispatch.outcome", OutcomeSuppressedGeofence.String()))
		return OutcomeSuppressedGeofence, nil
	}

	o.deliver(ctx, msg, recordID, settings, logger)
	return OutcomeDelivered, nil
}

// NoteAirplaneMode advances the dedup cutoff for subscriptions configured to
// reset on power cycle or airplane mode.
func (o *Orchestrator) NoteAirplaneMode() {
	o.mu.Lock()
	o.lastAirplaneMode = time.Now()
	o.mu.Unlock()
	o.logger.Info().Msg("airplane mode noted, dedup cutoff advanced")
}

// SetDuplicateDetection toggles duplicate detection. Debug escape hatch only.
func (o *Orchestrator) SetDuplicateDetection(enabled bool) {
	o.dedupEnabled.Store(enabled)
	o.logger.Warn().Bool("enabled", enabled).Msg("duplicate detection toggled")
}

// DuplicateDetectionEnabled reports the current toggle state.
func (o *Orchestrator) DuplicateDetectionEnabled() bool {
	return o.dedupEnabled.Load()
}

// MetricsSnapshot returns the dispatch counters for status reporting.
func (o *Orchestrator) MetricsSnapshot() map[string]interface{} {
	return o.metrics.Snapshot()
}

func (o *Orchestrator) isDuplicate(ctx context.Context, msg *broadcast.Message, settings Settings, logger zerolog.Logger) bool {
	if !o.dedupEnabled.Load() {
		logger.Debug().Msg("duplicate detection is disabled")
		return false
	}

	cutoff := time.Now().Add(-settings.DedupWindow)
	if settings.ResetOnPowerCycle {
		o.mu.Lock()
		if o.lastAirplaneMode.After(cutoff) {
			cutoff = o.lastAirplaneMode
		}
		o.mu.Unlock()
		if o.startedAt.After(cutoff) {
			cutoff = o.startedAt
		}
	}

	window, err := o.queryBreaker.Execute(func() ([]*broadcast.Message, error) {
		return o.store.QuerySince(ctx, cutoff)
	})
	if err != nil {
		// Fail open: a lost alert is worse than an occasional duplicate.
		logger.Error().Err(err).Msg("dedup window query failed, treating as not a duplicate")
		return false
	}

	logger.Debug().Int("window_size", len(window)).Time("cutoff", cutoff).Msg("checking duplicate window")
	return o.detector.IsDuplicate(msg, window, settings.CompareBody)
}

func (o *Orchestrator) insertWithRetry(ctx context.Context, msg *broadcast.Message) (string, error) {
	var recordID string
	operation := func() error {
		id, err := o.store.Insert(ctx, msg)
		if err != nil {
			return err
		}
		recordID = id
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return recordID, nil
}

// awaitLocation parks the dispatch until the coordinator resolves, the wait
// budget expires inside the coordinator, or the context is cancelled.
func (o *Orchestrator) awaitLocation(ctx context.Context, maxWait time.Duration) *geo.Point {
	ch := make(chan *geo.Point, 1)
	o.locations.RequestLocation(func(p *geo.Point) { ch <- p }, maxWait)

	select {
	case p := <-ch:
		return p
	case <-ctx.Done():
		return nil
	}
}

func (o *Orchestrator) deliver(ctx context.Context, msg *broadcast.Message, recordID string, settings Settings, logger zerolog.Logger) {
	recipients := settings.NormalRecipients
	priority := delivery.PriorityNormal
	if msg.Emergency {
		priority = delivery.PriorityEmergency
		recipients = settings.EmergencyRecipients
		if len(settings.TestRecipients) > 0 {
			recipients = append(append([]string(nil), recipients...), settings.TestRecipients...)
		}
	}

	logger.Info().
		Str("priority", priority.String()).
		Int("recipients", len(recipients)).
		Msg("dispatching alert")

	if err := o.sender.Send(ctx, msg, recipients, priority); err != nil {
		logger.Error().Err(err).Msg("delivery failed for one or more recipients")
		return
	}

	if err := o.store.MarkBroadcast(ctx, recordID); err != nil {
		logger.Warn().Err(err).Str("record_id", recordID).Msg("failed to mark record broadcasted")
	}

	o.metrics.record(func(m *Metrics) { m.Delivered++ })
}
