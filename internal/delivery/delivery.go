// Package delivery sends dispatched alerts to their configured recipients.
package delivery

import (
	"context"

	"github.com/alertgrid/alertgrid/internal/broadcast"
)

// Priority classifies how a message should be presented downstream.
type Priority int

const (
	// PriorityNormal is the default delivery class.
	PriorityNormal Priority = iota
	// PriorityEmergency marks alerts that must be delivered with elevated
	// visibility, e.g. foreground handling by receivers.
	PriorityEmergency
)

// String returns the wire name of the priority class.
func (p Priority) String() string {
	if p == PriorityEmergency {
		return "emergency"
	}
	return "normal"
}

// Sender delivers a message to a set of recipients. Implementations report a
// joined error covering every recipient that failed; a nil error means all
// recipients acknowledged the message.
type Sender interface {
	Send(ctx context.Context, msg *broadcast.Message, recipients []string, priority Priority) error
}
