package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
	repo "github.com/safespace/safespace-server/internal/repository/events"
)

// schoolLog is the per-school slice of the ledger. Appends for one school are
// serialized on appendMu; the in-memory tail is guarded separately so readers
// only ever wait for a memory copy, never for the durability write.
type schoolLog struct {
	// appendMu serializes appends for this school. Held across the
	// durability write.
	appendMu sync.Mutex
	// mu guards events and lastSeq. Critical sections are memory-only.
	mu sync.RWMutex
	// events holds the school's history in sequence order.
	events []*domain.AlertEvent
	// lastSeq is the highest assigned sequence number.
	lastSeq uint64
}

// Service is the history ledger. It owns sequence assignment and keeps an
// in-memory copy of the log for reads; the repository provides durability.
type Service struct {
	// repo persists events. Nil disables persistence.
	repo repo.Repository
	// appendTimeout bounds the durability write. Zero means no bound.
	appendTimeout time.Duration
	// mu protects the shard map, not the logs themselves.
	mu sync.RWMutex
	// logs shards the ledger by school.
	logs map[string]*schoolLog
}

// NewService creates a ledger over the provided repository and replays the
// persisted log to rebuild sequence counters.
func NewService(ctx context.Context, repository repo.Repository, appendTimeout time.Duration) (*Service, error) {
	s := &Service{
		repo:          repository,
		appendTimeout: appendTimeout,
		logs:          make(map[string]*schoolLog),
	}

	if repository == nil {
		return s, nil
	}

	events, err := repository.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	for _, event := range events {
		log := s.schoolLogLocked(event.SchoolID)
		log.events = append(log.events, event)

		if event.Sequence > log.lastSeq {
			log.lastSeq = event.Sequence
		}
	}

	if len(events) > 0 {
		logger.InfoKV(ctx, "Ledger replayed", "events", len(events), "schools", len(s.logs))
	}

	return s, nil
}

// Append stamps the event with the school's next sequence number, persists it
// and only then makes it readable. On storage failure nothing is advanced and
// the caller gets ErrStorage; retrying is the caller's decision because a
// blind retry risks duplicate entries.
func (s *Service) Append(ctx context.Context, event *domain.AlertEvent) (uint64, error) {
	if event == nil || event.SchoolID == "" {
		return 0, fmt.Errorf("%w: event school is required", domain.ErrValidation)
	}

	log := s.schoolLogFor(event.SchoolID)

	log.appendMu.Lock()
	defer log.appendMu.Unlock()

	log.mu.RLock()
	next := log.lastSeq + 1
	log.mu.RUnlock()

	stamped := *event
	stamped.Sequence = next

	if stamped.Timestamp.IsZero() {
		stamped.Timestamp = time.Now()
	}

	// The durability write runs outside log.mu so readers stay unblocked
	// while the disk is slow. appendMu keeps the sequence stable meanwhile.
	if s.repo != nil {
		appendCtx := ctx

		if s.appendTimeout > 0 {
			var cancel context.CancelFunc

			appendCtx, cancel = context.WithTimeout(ctx, s.appendTimeout)
			defer cancel()
		}

		if err := s.repo.Append(appendCtx, &stamped); err != nil {
			logger.Errorf(ctx, "Failed to persist alert event: %v", err)

			return 0, fmt.Errorf("%w: append event: %w", domain.ErrStorage, err)
		}
	}

	log.mu.Lock()
	log.events = append(log.events, &stamped)
	log.lastSeq = stamped.Sequence
	log.mu.Unlock()

	return stamped.Sequence, nil
}

// ReadSince returns the school's events with sequence greater than since, in
// ascending order. The result is a copy taken under the memory lock only, so
// an in-flight durability write never delays readers.
func (s *Service) ReadSince(_ context.Context, schoolID string, since uint64) ([]*domain.AlertEvent, error) {
	log := s.schoolLogFor(schoolID)

	log.mu.RLock()
	defer log.mu.RUnlock()

	out := make([]*domain.AlertEvent, 0, len(log.events))

	for _, event := range log.events {
		if event.Sequence > since {
			cloned := *event
			out = append(out, &cloned)
		}
	}

	return out, nil
}

// schoolLogFor returns the shard for the school, creating it on first use.
func (s *Service) schoolLogFor(schoolID string) *schoolLog {
	s.mu.RLock()
	log, ok := s.logs[schoolID]
	s.mu.RUnlock()

	if ok {
		return log
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.schoolLogLocked(schoolID)
}

// schoolLogLocked returns the shard for the school. Callers hold mu or run
// before the service is shared.
func (s *Service) schoolLogLocked(schoolID string) *schoolLog {
	log, ok := s.logs[schoolID]
	if !ok {
		log = new(schoolLog)
		s.logs[schoolID] = log
	}

	return log
}
