package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alertgrid/alertgrid/internal/broadcast"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	messages    map[string]*broadcast.Message
	broadcasted map[string]bool
}

// NewInMemoryRepository creates a new in-memory message repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages:    make(map[string]*broadcast.Message),
		broadcasted: make(map[string]bool),
	}
}

// QuerySince retrieves messages received at or after the given time.
func (r *InMemoryRepository) QuerySince(_ context.Context, since time.Time) ([]*broadcast.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*broadcast.Message
	for _, m := range r.messages {
		if !m.ReceivedAt.Before(since) {
			cpy := *m
			result = append(result, &cpy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result, nil
}

// Insert persists a message and returns its record ID.
func (r *InMemoryRepository) Insert(_ context.Context, msg *broadcast.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	cpy := *msg
	cpy.RecordID = id
	r.messages[id] = &cpy
	return id, nil
}

// MarkBroadcast flags a stored message as delivered.
func (r *InMemoryRepository) MarkBroadcast(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[recordID]; !ok {
		return ErrRecordNotFound
	}
	r.broadcasted[recordID] = true
	return nil
}

// IsBroadcast reports whether a record has been marked broadcasted.
// Test helper, not part of the Repository interface.
func (r *InMemoryRepository) IsBroadcast(recordID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.broadcasted[recordID]
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
