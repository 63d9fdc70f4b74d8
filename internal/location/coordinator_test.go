package location

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/alertgrid/alertgrid/pkg/geo"
)

// fakeProvider records queries and lets the test resolve them by hand.
type fakeProvider struct {
	mu        sync.Mutex
	name      string
	available bool
	results   []func(*geo.Point)
	cancelled int
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) RequestFix(_ time.Duration, result func(*geo.Point)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cancelled++
	}
}

func (p *fakeProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

func (p *fakeProvider) resolve(t *testing.T, index int, point *geo.Point) {
	t.Helper()
	p.mu.Lock()
	result := p.results[index]
	p.mu.Unlock()
	result(point)
}

// collector gathers callback results across goroutines.
type collector struct {
	mu      sync.Mutex
	results []*geo.Point
}

func (c *collector) callback() Callback {
	return func(p *geo.Point) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.results = append(c.results, p)
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *collector) get(i int) *geo.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[i]
}

func TestCoordinator_CoalescesConcurrentRequests(t *testing.T) {
	provider := &fakeProvider{name: "network", available: true}
	c := NewCoordinator([]Provider{provider}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Minute)
	c.RequestLocation(got.callback(), time.Minute)

	require.Eventually(t, func() bool { return provider.queryCount() == 1 }, time.Second, time.Millisecond,
		"expected exactly one outstanding provider query")

	fix := &geo.Point{Lat: 52.37, Lng: 4.9}
	provider.resolve(t, 0, fix)

	require.Eventually(t, func() bool { return got.count() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, fix, got.get(0))
	require.Equal(t, fix, got.get(1))
}

func TestCoordinator_NoAvailableProvider(t *testing.T) {
	provider := &fakeProvider{name: "gps", available: false}
	c := NewCoordinator([]Provider{provider}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Minute)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, time.Millisecond)
	require.Nil(t, got.get(0))
	require.Zero(t, provider.queryCount())
}

func TestCoordinator_WaitsForRemainingProviders(t *testing.T) {
	network := &fakeProvider{name: "network", available: true}
	gps := &fakeProvider{name: "gps", available: true}
	c := NewCoordinator([]Provider{network, gps}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Minute)

	require.Eventually(t, func() bool { return network.queryCount() == 1 && gps.queryCount() == 1 },
		time.Second, time.Millisecond)

	// The first failure must not resolve while gps is still pending.
	network.resolve(t, 0, nil)
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, got.count())

	fix := &geo.Point{Lat: 1, Lng: 2}
	gps.resolve(t, 0, fix)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, fix, got.get(0))
}

func TestCoordinator_AllProvidersFail(t *testing.T) {
	network := &fakeProvider{name: "network", available: true}
	gps := &fakeProvider{name: "gps", available: true}
	c := NewCoordinator([]Provider{network, gps}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Minute)

	require.Eventually(t, func() bool { return network.queryCount() == 1 && gps.queryCount() == 1 },
		time.Second, time.Millisecond)

	network.resolve(t, 0, nil)
	gps.resolve(t, 0, nil)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, time.Millisecond)
	require.Nil(t, got.get(0))
}

func TestCoordinator_WinnerCancelsLosers(t *testing.T) {
	network := &fakeProvider{name: "network", available: true}
	gps := &fakeProvider{name: "gps", available: true}
	c := NewCoordinator([]Provider{network, gps}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Minute)

	require.Eventually(t, func() bool { return network.queryCount() == 1 && gps.queryCount() == 1 },
		time.Second, time.Millisecond)

	network.resolve(t, 0, &geo.Point{Lat: 1, Lng: 2})
	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, time.Millisecond)

	gps.mu.Lock()
	cancelled := gps.cancelled
	gps.mu.Unlock()
	require.Equal(t, 1, cancelled, "expected losing query to be cancelled")

	// A stale result from the cancelled cycle is ignored.
	gps.resolve(t, 0, &geo.Point{Lat: 9, Lng: 9})
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 1, got.count())
}

func TestCoordinator_FreshCycleAfterResolution(t *testing.T) {
	provider := &fakeProvider{name: "network", available: true}
	c := NewCoordinator([]Provider{provider}, zerolog.Nop())
	defer c.Close()

	var first collector
	c.RequestLocation(first.callback(), time.Minute)
	require.Eventually(t, func() bool { return provider.queryCount() == 1 }, time.Second, time.Millisecond)
	provider.resolve(t, 0, &geo.Point{Lat: 1, Lng: 1})
	require.Eventually(t, func() bool { return first.count() == 1 }, time.Second, time.Millisecond)

	var second collector
	c.RequestLocation(second.callback(), time.Minute)
	require.Eventually(t, func() bool { return provider.queryCount() == 2 }, time.Second, time.Millisecond,
		"expected a new request after resolution to start a fresh query")
	provider.resolve(t, 1, nil)
	require.Eventually(t, func() bool { return second.count() == 1 }, time.Second, time.Millisecond)
	require.Nil(t, second.get(0))
}

func TestCoordinator_StaticProviderTimeout(t *testing.T) {
	provider := &StaticProvider{
		ProviderName: "static",
		Point:        geo.Point{Lat: 52, Lng: 4},
		Delay:        time.Minute,
		Enabled:      true,
	}
	c := NewCoordinator([]Provider{provider}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), 20*time.Millisecond)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Nil(t, got.get(0), "expected timeout to resolve as unavailable")
}

func TestCoordinator_StaticProviderFix(t *testing.T) {
	provider := &StaticProvider{
		ProviderName: "static",
		Point:        geo.Point{Lat: 52, Lng: 4},
		Delay:        time.Millisecond,
		Enabled:      true,
	}
	c := NewCoordinator([]Provider{provider}, zerolog.Nop())
	defer c.Close()

	var got collector
	c.RequestLocation(got.callback(), time.Second)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, time.Millisecond)
	require.NotNil(t, got.get(0))
	require.Equal(t, 52.0, got.get(0).Lat)
}
