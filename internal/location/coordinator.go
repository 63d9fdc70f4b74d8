package location

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/pkg/geo"
)

// DefaultMaxWait is used when a request does not specify a wait budget. Most
// platform location queries respond well within 30 seconds.
const DefaultMaxWait = 30 * time.Second

// Callback receives the resolved location, or nil when no location could be
// obtained within the wait budget.
type Callback func(point *geo.Point)

// Coordinator coalesces concurrent location requests. While a lookup cycle is
// in flight, new requests join the pending set instead of issuing additional
// provider queries; the first provider fix resolves every pending callback
// and cancels the remaining queries.
//
// All mutable state is owned by a single event-loop goroutine. Provider
// callbacks are marshaled back onto that loop, so no locking is needed and
// no two mutations ever race.
type Coordinator struct {
	providers   []Provider
	defaultWait time.Duration
	logger      zerolog.Logger

	events chan func()
	quit   chan struct{}
	done   chan struct{}

	// Owned by the event loop.
	pending  []Callback
	inFlight int
	cancels  []func()
}

// NewCoordinator creates a coordinator over the given providers and starts
// its event loop. Providers are queried in the given order; list the cheaper
// provider (e.g. network) before the more expensive one (e.g. GPS).
func NewCoordinator(providers []Provider, logger zerolog.Logger) *Coordinator {
	c := &Coordinator{
		providers:   providers,
		defaultWait: DefaultMaxWait,
		logger:      logger,
		events:      make(chan func(), 64),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case f := <-c.events:
			f()
		case <-c.quit:
			c.resolve(nil)
			return
		}
	}
}

// post marshals f onto the event loop. Dropped if the coordinator is closed.
func (c *Coordinator) post(f func()) {
	select {
	case c.events <- f:
	case <-c.quit:
	}
}

// RequestLocation requests the current device location. It never blocks; cb
// is invoked exactly once from the coordinator's event loop, with a point or
// with nil when no provider delivered a fix within maxWait. A non-positive
// maxWait selects the coordinator default.
func (c *Coordinator) RequestLocation(cb Callback, maxWait time.Duration) {
	c.post(func() { c.request(cb, maxWait) })
}

// Close shuts down the event loop. Pending callbacks are resolved as
// unavailable and outstanding provider queries are cancelled.
func (c *Coordinator) Close() {
	close(c.quit)
	<-c.done
}

func (c *Coordinator) request(cb Callback, maxWait time.Duration) {
	if maxWait <= 0 {
		maxWait = c.defaultWait
	}

	if c.inFlight == 0 {
		for _, p := range c.providers {
			if !p.Available() {
				c.logger.Debug().Str("provider", p.Name()).Msg("location provider not available")
				continue
			}

			name := p.Name()
			cancel := p.RequestFix(maxWait, func(point *geo.Point) {
				c.post(func() { c.onResult(name, point) })
			})
			c.cancels = append(c.cancels, cancel)
			c.inFlight++
		}
	}

	if c.inFlight > 0 {
		c.pending = append(c.pending, cb)
	} else {
		// No permission or no enabled provider: fail the request right away.
		cb(nil)
	}
}

func (c *Coordinator) onResult(provider string, point *geo.Point) {
	if c.inFlight == 0 {
		// Late result from an already resolved cycle.
		c.logger.Debug().Str("provider", provider).Msg("ignoring stale location result")
		return
	}

	c.inFlight--

	if point == nil && c.inFlight > 0 {
		c.logger.Debug().
			Str("provider", provider).
			Int("remaining", c.inFlight).
			Msg("provider query failed, waiting for remaining providers")
		return
	}

	if point != nil {
		c.logger.Debug().Str("provider", provider).Msg("got location fix")
	} else {
		c.logger.Debug().Msg("location not available")
	}
	c.resolve(point)
}

// resolve fires every pending callback, cancels outstanding queries and
// resets the cycle. Runs on the event loop.
func (c *Coordinator) resolve(point *geo.Point) {
	for _, cb := range c.pending {
		cb(point)
	}
	c.pending = nil

	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.inFlight = 0
}
