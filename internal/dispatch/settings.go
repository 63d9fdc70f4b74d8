package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Settings are the dispatch policies for one subscription. Carriers differ on
// window length, body comparison and reset behavior, so these are resolved
// per subscription rather than fixed process-wide.
type Settings struct {
	// DedupWindow is how far back the duplicate check looks.
	DedupWindow time.Duration

	// CompareBody additionally requires body equality for same-slot matches.
	CompareBody bool

	// ResetOnPowerCycle shortens the dedup window to the latest of process
	// start and airplane-mode toggle when enabled.
	ResetOnPowerCycle bool

	// DefaultMaxWait is the geofence wait budget for messages that carry
	// the unset sentinel.
	DefaultMaxWait time.Duration

	// EmergencyRecipients receive emergency-class alerts.
	EmergencyRecipients []string

	// NormalRecipients receive everything else.
	NormalRecipients []string

	// TestRecipients additionally receive emergency alerts when set.
	// Debug/automation only; empty in production.
	TestRecipients []string
}

// DefaultSettings returns the documented fallback policies, used whenever a
// subscription's configuration cannot be resolved.
func DefaultSettings() Settings {
	return Settings{
		DedupWindow:    24 * time.Hour,
		CompareBody:    false,
		DefaultMaxWait: 30 * time.Second,
	}
}

// Resolver resolves dispatch settings for a subscription.
type Resolver interface {
	Resolve(ctx context.Context, subscriptionID int) (Settings, error)
}

// StaticResolver returns the same settings for every subscription.
type StaticResolver struct {
	Settings Settings
}

// Resolve returns the static settings.
func (r StaticResolver) Resolve(context.Context, int) (Settings, error) {
	return r.Settings, nil
}

// CachedResolver wraps a Resolver with an in-memory cache keyed by
// subscription ID. Entries live until Invalidate is called on a subscription
// change event; resolution failures fall back to DefaultSettings rather than
// failing the dispatch.
type CachedResolver struct {
	inner  Resolver
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[int]Settings
}

// NewCachedResolver creates a caching resolver around inner.
func NewCachedResolver(inner Resolver, logger zerolog.Logger) *CachedResolver {
	return &CachedResolver{
		inner:  inner,
		logger: logger,
		cache:  make(map[int]Settings),
	}
}

// Resolve returns the cached settings for the subscription, consulting the
// inner resolver on a miss. A resolver error yields DefaultSettings.
func (r *CachedResolver) Resolve(ctx context.Context, subscriptionID int) (Settings, error) {
	r.mu.RLock()
	cached, ok := r.cache[subscriptionID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	settings, err := r.inner.Resolve(ctx, subscriptionID)
	if err != nil {
		r.logger.Warn().Err(err).
			Int("subscription_id", subscriptionID).
			Msg("failed to resolve dispatch settings, using defaults")
		return DefaultSettings(), nil
	}

	r.mu.Lock()
	r.cache[subscriptionID] = settings
	r.mu.Unlock()
	return settings, nil
}

// Invalidate clears the cache. Call on subscription change events.
func (r *CachedResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[int]Settings)
}

// Ensure resolvers implement the Resolver interface.
var (
	_ Resolver = StaticResolver{}
	_ Resolver = (*CachedResolver)(nil)
)
