// Package broadcast defines the decoded alert message model and the duplicate
// detection rules applied before a message is dispatched.
package broadcast

import (
	"time"

	"github.com/alertgrid/alertgrid/pkg/geo"
)

// Format identifies the radio technology a message was received on.
type Format int

const (
	// FormatGSM is a 3GPP cell broadcast message.
	FormatGSM Format = iota
	// FormatCDMA is a 3GPP2 cell broadcast message.
	FormatCDMA
)

// MaxWaitNotSet marks a message that did not specify a geofence wait budget.
// The dispatcher substitutes its configured default wait time.
const MaxWaitNotSet = -1

// EtwsInfo carries the early-warning phase of an ETWS message. Primary
// notifications and secondary (detailed) messages share serial numbers but
// must never be conflated by duplicate detection.
type EtwsInfo struct {
	Primary bool
}

// Message is a decoded broadcast alert handed to the dispatcher by the
// transport layer. Values are read-only once received.
type Message struct {
	// RecordID is the store identifier, set once the message is persisted
	// or when it is read back from the store.
	RecordID string

	Format          Format
	SlotIndex       int
	SubscriptionID  int
	SerialNumber    int
	ServiceCategory int
	Body            string
	Emergency       bool

	// Etws is nil unless this is an early warning message.
	Etws *EtwsInfo

	// Area is the broadcast target area; empty means no geo targeting.
	Area geo.Area

	// MaxWaitSec is the geofence wait budget in seconds, or MaxWaitNotSet.
	MaxWaitSec int

	ReceivedAt time.Time
}

// IsEtws reports whether the message is an early warning message.
func (m *Message) IsEtws() bool {
	return m.Etws != nil
}

// NeedsGeoFence reports whether delivery must wait for a geofence decision:
// the message declares a target area and a positive (or unset, meaning
// default) wait budget.
func (m *Message) NeedsGeoFence() bool {
	return len(m.Area) > 0 && (m.MaxWaitSec > 0 || m.MaxWaitSec == MaxWaitNotSet)
}
