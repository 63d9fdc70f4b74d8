// Package location serves device location requests for geofence checks. A
// single Coordinator coalesces concurrent requests into at most one
// outstanding query per platform provider.
package location

import (
	"sync"
	"time"

	"github.com/alertgrid/alertgrid/pkg/geo"
)

// Provider is a single platform location source, e.g. a network or GPS
// provider exposed by the host platform.
type Provider interface {
	// Name identifies the provider for logging.
	Name() string

	// Available reports whether the provider can currently serve queries
	// (enabled and permitted).
	Available() bool

	// RequestFix starts a single asynchronous location query. The result
	// function is invoked exactly once with the fix, or with nil if the
	// provider fails or the timeout expires first. The returned cancel
	// function stops the query; cancelling after the result has fired is a
	// no-op and must be safe.
	RequestFix(timeout time.Duration, result func(point *geo.Point)) (cancel func())
}

// StaticProvider serves a fixed location after a configurable delay. Used for
// local development and as a stand-in where the platform offers no real
// provider.
type StaticProvider struct {
	ProviderName string
	Point        geo.Point
	Delay        time.Duration
	Enabled      bool
}

// Name identifies the provider.
func (p *StaticProvider) Name() string { return p.ProviderName }

// Available reports whether the provider is enabled.
func (p *StaticProvider) Available() bool { return p.Enabled }

// RequestFix resolves with the static point after the configured delay, or
// with nil if the timeout elapses first.
func (p *StaticProvider) RequestFix(timeout time.Duration, result func(point *geo.Point)) func() {
	var once sync.Once
	fire := func(pt *geo.Point) {
		once.Do(func() { result(pt) })
	}

	delay := p.Delay
	if delay >= timeout {
		timer := time.AfterFunc(timeout, func() { fire(nil) })
		return func() {
			timer.Stop()
			once.Do(func() {}) // suppress any pending result
		}
	}

	pt := p.Point
	timer := time.AfterFunc(delay, func() { fire(&pt) })
	return func() {
		timer.Stop()
		once.Do(func() {})
	}
}
