package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	settings Settings
	err      error
	calls    int
}

func (r *countingResolver) Resolve(context.Context, int) (Settings, error) {
	r.calls++
	return r.settings, r.err
}

func TestCachedResolver_CachesPerSubscription(t *testing.T) {
	inner := &countingResolver{settings: Settings{DedupWindow: time.Hour}}
	resolver := NewCachedResolver(inner, zerolog.Nop())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, 1)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, first.DedupWindow)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second resolve must hit the cache")

	_, err = resolver.Resolve(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "different subscription is a separate entry")
}

func TestCachedResolver_FallsBackToDefaults(t *testing.T) {
	inner := &countingResolver{err: errors.New("config service down")}
	resolver := NewCachedResolver(inner, zerolog.Nop())

	settings, err := resolver.Resolve(context.Background(), 1)
	require.NoError(t, err, "resolution failures must not fail the dispatch")
	assert.Equal(t, DefaultSettings(), settings)
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := &countingResolver{settings: Settings{DedupWindow: time.Hour}}
	resolver := NewCachedResolver(inner, zerolog.Nop())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 1)
	require.NoError(t, err)

	resolver.Invalidate()

	_, err = resolver.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "invalidate must drop cached entries")
}

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	assert.Equal(t, 24*time.Hour, settings.DedupWindow)
	assert.Equal(t, 30*time.Second, settings.DefaultMaxWait)
	assert.False(t, settings.CompareBody)
	assert.False(t, settings.ResetOnPowerCycle)
}
