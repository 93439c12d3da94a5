package events

import (
	"context"
	"sync"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// MemoryRepository keeps the event log in memory. Used by tests and by
// servers that accept losing history on restart.
type MemoryRepository struct {
	// mu serializes access to the log.
	mu sync.Mutex
	// log holds every appended event in write order.
	log []*domain.AlertEvent
	// appendErr, when set, is returned by Append to simulate storage failure.
	appendErr error
}

// NewMemoryRepository creates an empty in-memory event log.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append stores a copy of the event.
func (r *MemoryRepository) Append(_ context.Context, event *domain.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.appendErr != nil {
		return r.appendErr
	}

	cloned := *event
	r.log = append(r.log, &cloned)

	return nil
}

// LoadAll returns a copy of the log in write order.
func (r *MemoryRepository) LoadAll(context.Context) ([]*domain.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.AlertEvent, len(r.log))
	for i, e := range r.log {
		cloned := *e
		out[i] = &cloned
	}

	return out, nil
}

// FailAppends makes every subsequent Append return err.
func (r *MemoryRepository) FailAppends(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appendErr = err
}
