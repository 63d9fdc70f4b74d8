package dispatch

import (
	"sync"
	"time"
)

// Metrics tracks dispatch outcomes for the ops status endpoint.
type Metrics struct {
	mu sync.RWMutex

	Received            int64
	Duplicates          int64
	Delivered           int64
	GeofenceSuppressed  int64
	GeofencePassThrough int64
	InsertFailures      int64
	LastDispatchAt      time.Time
}

func (m *Metrics) record(update func(*Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m)
	m.LastDispatchAt = time.Now()
}

// Snapshot returns the current counters as a map for status reporting.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"received":              m.Received,
		"duplicates":            m.Duplicates,
		"delivered":             m.Delivered,
		"geofence_suppressed":   m.GeofenceSuppressed,
		"geofence_pass_through": m.GeofencePassThrough,
		"insert_failures":       m.InsertFailures,
		"last_dispatch_at":      m.LastDispatchAt,
	}
}
