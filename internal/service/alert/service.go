package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
	"github.com/safespace/safespace-server/internal/notification"
)

// Ledger is the slice of the history ledger the coordinator depends on.
type Ledger interface {
	Append(ctx context.Context, event *domain.AlertEvent) (uint64, error)
	ReadSince(ctx context.Context, schoolID string, since uint64) ([]*domain.AlertEvent, error)
}

// SchoolLookup resolves school records for building validation.
type SchoolLookup interface {
	Get(ctx context.Context, id string) (*domain.School, error)
}

// schoolAlerts is the live alert set of one school. Transitions for one school
// are serialized on writeMu; the live set itself is guarded separately so
// status reads only ever wait for a memory copy, never for the ledger write.
type schoolAlerts struct {
	// writeMu serializes transitions for this school. Held across the
	// ledger append.
	writeMu sync.Mutex
	// mu guards active. Critical sections are memory-only.
	mu sync.RWMutex
	// active maps principal to its current alert. At most one entry per
	// principal by construction.
	active map[string]*domain.AlertState
}

// Service coordinates alert transitions, the ledger and live observers.
type Service struct {
	// ledger records every transition before it becomes visible.
	ledger Ledger
	// schools validates buildings on trigger.
	schools SchoolLookup
	// hub receives a full snapshot after every transition.
	hub *notification.Hub
	// mu protects the shard map, not the shards themselves.
	mu sync.RWMutex
	// alerts shards the live sets by school.
	alerts map[string]*schoolAlerts
}

// NewService creates a coordinator and rebuilds the live alert sets by
// replaying the ledger: every Triggered event without a matching Cancelled
// event is still active. Replayed alerts keep their original start time and
// stay active until cancelled.
func NewService(ctx context.Context, ledgerSvc Ledger, schools SchoolLookup, hub *notification.Hub, schoolIDs []string) (*Service, error) {
	s := &Service{
		ledger:  ledgerSvc,
		schools: schools,
		hub:     hub,
		alerts:  make(map[string]*schoolAlerts),
	}

	for _, schoolID := range schoolIDs {
		events, err := ledgerSvc.ReadSince(ctx, schoolID, 0)
		if err != nil {
			return nil, fmt.Errorf("replay ledger for %s: %w", schoolID, err)
		}

		live := s.shardFor(schoolID)

		for _, event := range events {
			switch event.Kind {
			case domain.EventTriggered:
				live.active[event.Principal] = &domain.AlertState{
					Principal: event.Principal,
					SchoolID:  event.SchoolID,
					Building:  event.Building,
					Room:      event.Room,
					StartedAt: event.Timestamp,
				}
			case domain.EventCancelled:
				delete(live.active, event.Principal)
			}
		}

		if len(live.active) > 0 {
			logger.WarnKV(ctx, "Alerts still active after replay",
				"school_id", schoolID, "count", len(live.active))
		}
	}

	return s, nil
}

// Trigger raises an alert for the session's principal. Re-triggering while
// active returns the existing state unchanged: no new ledger entry and the
// original start time is preserved so duration reporting stays accurate.
func (s *Service) Trigger(ctx context.Context, session *domain.Session, building, room string) (*domain.AlertState, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is required", domain.ErrValidation)
	}

	// Administrators observe; they do not raise alerts on their own behalf.
	if session.Role != domain.RoleStudent {
		return nil, fmt.Errorf("%w: only students raise alerts", domain.ErrValidation)
	}

	school, err := s.schools.Get(ctx, session.SchoolID)
	if err != nil {
		return nil, err
	}

	if !school.HasBuilding(building) {
		return nil, fmt.Errorf("%w: unknown building %q", domain.ErrValidation, building)
	}

	live := s.shardFor(session.SchoolID)

	live.writeMu.Lock()
	defer live.writeMu.Unlock()

	live.mu.RLock()
	existing, ok := live.active[session.ID]
	live.mu.RUnlock()

	if ok {
		return existing.Clone(), nil
	}

	state := &domain.AlertState{
		Principal: session.ID,
		SchoolID:  session.SchoolID,
		Building:  building,
		Room:      room,
		StartedAt: time.Now(),
	}

	// Ledger first: if the append fails the live set is untouched and
	// nothing is published, so the operation fails atomically. writeMu
	// alone is held here, so status readers proceed during the write.
	_, err = s.ledger.Append(ctx, &domain.AlertEvent{
		SchoolID:  session.SchoolID,
		Principal: session.ID,
		Kind:      domain.EventTriggered,
		Building:  building,
		Room:      room,
		Timestamp: state.StartedAt,
	})
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	live.active[session.ID] = state
	live.mu.Unlock()

	logger.InfoKV(ctx, "Alert triggered",
		"school_id", session.SchoolID, "principal", session.ID, "building", building, "room", room)

	s.publish(ctx, session.SchoolID, live)

	return state.Clone(), nil
}

// Cancel withdraws the principal's active alert. Cancelling while idle is an
// InvalidStateError, not a silent success.
func (s *Service) Cancel(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is required", domain.ErrValidation)
	}

	live := s.shardFor(session.SchoolID)

	live.writeMu.Lock()
	defer live.writeMu.Unlock()

	live.mu.RLock()
	state, ok := live.active[session.ID]
	live.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no active alert for principal", domain.ErrInvalidState)
	}

	_, err := s.ledger.Append(ctx, &domain.AlertEvent{
		SchoolID:  session.SchoolID,
		Principal: session.ID,
		Kind:      domain.EventCancelled,
		Building:  state.Building,
		Room:      state.Room,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	live.mu.Lock()
	delete(live.active, session.ID)
	live.mu.Unlock()

	logger.InfoKV(ctx, "Alert cancelled",
		"school_id", session.SchoolID, "principal", session.ID,
		"duration", time.Since(state.StartedAt).String())

	s.publish(ctx, session.SchoolID, live)

	return nil
}

// LiveStatus returns a point-in-time copy of the school's active alerts,
// oldest first. The copy is taken under the memory lock only, so an in-flight
// transition waiting on the ledger never delays the read.
func (s *Service) LiveStatus(_ context.Context, schoolID string) []*domain.AlertState {
	return snapshotOf(s.shardFor(schoolID))
}

// publish pushes the current snapshot to the hub. Callers hold writeMu, so
// snapshots reach the hub in transition order; hub delivery never blocks.
func (s *Service) publish(ctx context.Context, schoolID string, live *schoolAlerts) {
	if s.hub == nil {
		return
	}

	s.hub.Publish(ctx, schoolID, snapshotOf(live))
}

// snapshotOf copies the live set ordered by start time, principal breaking
// ties.
func snapshotOf(live *schoolAlerts) []*domain.AlertState {
	live.mu.RLock()

	out := make([]*domain.AlertState, 0, len(live.active))

	for _, state := range live.active {
		out = append(out, state.Clone())
	}

	live.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].Principal < out[j].Principal
		}

		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	return out
}

// shardFor returns the live set for the school, creating it on first use.
func (s *Service) shardFor(schoolID string) *schoolAlerts {
	s.mu.RLock()
	live, ok := s.alerts[schoolID]
	s.mu.RUnlock()

	if ok {
		return live
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok = s.alerts[schoolID]
	if !ok {
		live = &schoolAlerts{
			active: make(map[string]*domain.AlertState),
		}
		s.alerts[schoolID] = live
	}

	return live
}
