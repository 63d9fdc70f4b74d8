// Package store persists received broadcast messages and their delivery
// status. The dedup window query and the broadcasted flag both live here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alertgrid/alertgrid/internal/broadcast"
)

// ErrRecordNotFound is returned when a record ID does not exist.
var ErrRecordNotFound = errors.New("store: record not found")

// Repository defines the interface for broadcast message persistence.
type Repository interface {
	// QuerySince retrieves messages received at or after the given time,
	// newest first. This is the duplicate detection window.
	QuerySince(ctx context.Context, since time.Time) ([]*broadcast.Message, error)

	// Insert persists a message and returns its record ID.
	Insert(ctx context.Context, msg *broadcast.Message) (string, error)

	// MarkBroadcast flags a stored message as delivered to its recipients.
	MarkBroadcast(ctx context.Context, recordID string) error
}
