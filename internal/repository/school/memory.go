package school

import (
	"context"
	"sync"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// MemoryRepository keeps the catalog in memory. Used by tests and by servers
// that accept losing registrations on restart.
type MemoryRepository struct {
	// mu protects concurrent access to the snapshot.
	mu sync.Mutex
	// schools is the last saved catalog snapshot.
	schools []*domain.School
}

// NewMemoryRepository creates an empty in-memory catalog repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load returns the last saved catalog, or ErrNotFound before the first save.
func (r *MemoryRepository) Load(_ context.Context) ([]*domain.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schools == nil {
		return nil, ErrNotFound
	}

	out := make([]*domain.School, len(r.schools))
	for i, s := range r.schools {
		out[i] = s.Clone()
	}

	return out, nil
}

// Save replaces the stored snapshot.
func (r *MemoryRepository) Save(_ context.Context, schools []*domain.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schools = make([]*domain.School, len(schools))
	for i, s := range schools {
		r.schools[i] = s.Clone()
	}

	return nil
}
