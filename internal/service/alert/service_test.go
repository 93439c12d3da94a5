package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/notification"
	eventsrepo "github.com/safespace/safespace-server/internal/repository/events"
	schoolrepo "github.com/safespace/safespace-server/internal/repository/school"
	"github.com/safespace/safespace-server/internal/service/auth"
	"github.com/safespace/safespace-server/internal/service/ledger"
	"github.com/safespace/safespace-server/internal/service/registry"
)

var errDiskFull = errors.New("disk full")

// fixture wires a coordinator over in-memory repositories.
type fixture struct {
	registry *registry.Service
	auth     *auth.Service
	ledger   *ledger.Service
	events   *eventsrepo.MemoryRepository
	hub      *notification.Hub
	alerts   *Service
	school   *domain.School
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	reg, err := registry.NewService(ctx, schoolrepo.NewMemoryRepository())
	require.NoError(t, err)

	school, err := reg.Register(ctx, registry.RegisterInput{
		Name:        "Chavez MS",
		JoinSecret:  "CHAVEZ2026",
		AdminSecret: "ADMIN99",
		Buildings:   []string{"Main", "Gym"},
	})
	require.NoError(t, err)

	events := eventsrepo.NewMemoryRepository()

	ledgerSvc, err := ledger.NewService(ctx, events, 0)
	require.NoError(t, err)

	hub := notification.NewHub()

	alerts, err := NewService(ctx, ledgerSvc, reg, hub, []string{school.ID})
	require.NoError(t, err)

	return &fixture{
		registry: reg,
		auth:     auth.NewService(reg),
		ledger:   ledgerSvc,
		events:   events,
		hub:      hub,
		alerts:   alerts,
		school:   school,
	}
}

func (f *fixture) studentSession(t *testing.T) *domain.Session {
	t.Helper()

	_, session, err := f.auth.VerifyJoin(context.Background(), f.school.ID, "CHAVEZ2026")
	require.NoError(t, err)

	return session
}

func (f *fixture) adminSession(t *testing.T) *domain.Session {
	t.Helper()

	_, session, err := f.auth.VerifyAdmin(context.Background(), f.school.ID, "ADMIN99")
	require.NoError(t, err)

	return session
}

// TestTriggerAndCancel covers the full Idle -> Active -> Idle round trip with
// its ledger entries.
func TestTriggerAndCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := f.studentSession(t)

	state, err := f.alerts.Trigger(context.Background(), session, "Gym", "204")
	require.NoError(t, err)
	require.Equal(t, "Gym", state.Building)
	require.Equal(t, "204", state.Room)
	require.False(t, state.StartedAt.IsZero())

	status := f.alerts.LiveStatus(context.Background(), f.school.ID)
	require.Len(t, status, 1)
	require.Equal(t, session.ID, status[0].Principal)

	events, err := f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventTriggered, events[0].Kind)
	require.Equal(t, uint64(1), events[0].Sequence)

	require.NoError(t, f.alerts.Cancel(context.Background(), session))
	require.Empty(t, f.alerts.LiveStatus(context.Background(), f.school.ID))

	events, err = f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.EventCancelled, events[1].Kind)
	require.Equal(t, uint64(2), events[1].Sequence)
	require.Equal(t, "Gym", events[1].Building)
}

// TestTrigger_Idempotent verifies re-triggering while active is absorbed.
func TestTrigger_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := f.studentSession(t)

	first, err := f.alerts.Trigger(context.Background(), session, "Gym", "")
	require.NoError(t, err)

	// Re-trigger from a different room: the active record wins.
	second, err := f.alerts.Trigger(context.Background(), session, "Main", "101")
	require.NoError(t, err)
	require.Equal(t, first.Building, second.Building)
	require.True(t, first.StartedAt.Equal(second.StartedAt))

	status := f.alerts.LiveStatus(context.Background(), f.school.ID)
	require.Len(t, status, 1)

	// No duplicate ledger entry.
	events, err := f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

// TestTrigger_Validation rejects admins, unknown buildings and nil sessions.
func TestTrigger_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.alerts.Trigger(context.Background(), nil, "Gym", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.alerts.Trigger(context.Background(), f.adminSession(t), "Gym", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.alerts.Trigger(context.Background(), f.studentSession(t), "Pool", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	// Nothing reached the ledger.
	events, err := f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

// TestCancel_WhenIdle verifies cancelling without an active alert is an error
// and produces no ledger entry.
func TestCancel_WhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.alerts.Cancel(context.Background(), f.studentSession(t))
	require.ErrorIs(t, err, domain.ErrInvalidState)

	events, err := f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

// TestTrigger_StorageFailureIsAtomic verifies a failed append leaves no live
// state and publishes nothing.
func TestTrigger_StorageFailureIsAtomic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sub := f.hub.Subscribe(f.school.ID)

	f.events.FailAppends(errDiskFull)

	_, err := f.alerts.Trigger(context.Background(), f.studentSession(t), "Gym", "")
	require.ErrorIs(t, err, domain.ErrStorage)

	require.Empty(t, f.alerts.LiveStatus(context.Background(), f.school.ID))
	require.Empty(t, sub.C)

	f.hub.Unsubscribe(sub)
}

// TestTrigger_PublishesSnapshots verifies observers receive full-state
// snapshots after each transition.
func TestTrigger_PublishesSnapshots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sub := f.hub.Subscribe(f.school.ID)

	session := f.studentSession(t)

	_, err := f.alerts.Trigger(context.Background(), session, "Gym", "")
	require.NoError(t, err)

	snapshot := <-sub.C
	require.Len(t, snapshot, 1)
	require.Equal(t, "Gym", snapshot[0].Building)

	require.NoError(t, f.alerts.Cancel(context.Background(), session))

	snapshot = <-sub.C
	require.Empty(t, snapshot)

	f.hub.Unsubscribe(sub)
}

// stallingLedger blocks every append until released or the context expires,
// standing in for a ledger stuck on the disk.
type stallingLedger struct {
	// release unblocks all pending and future appends when closed.
	release chan struct{}
	// started signals that an append reached the ledger.
	started chan struct{}
}

func newStallingLedger() *stallingLedger {
	return &stallingLedger{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
}

func (l *stallingLedger) Append(ctx context.Context, _ *domain.AlertEvent) (uint64, error) {
	select {
	case l.started <- struct{}{}:
	default:
	}

	select {
	case <-l.release:
		return 1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (l *stallingLedger) ReadSince(context.Context, string, uint64) ([]*domain.AlertEvent, error) {
	return nil, nil
}

// TestLiveStatus_DuringSlowAppend verifies status reads are served from
// memory while a trigger is stuck on the ledger write.
func TestLiveStatus_DuringSlowAppend(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	stalled := newStallingLedger()

	alerts, err := NewService(context.Background(), stalled, f.registry, f.hub, nil)
	require.NoError(t, err)

	session := f.studentSession(t)
	triggerDone := make(chan error, 1)

	go func() {
		_, triggerErr := alerts.Trigger(context.Background(), session, "Gym", "")
		triggerDone <- triggerErr
	}()

	<-stalled.started

	statusDone := make(chan []*domain.AlertState, 1)

	go func() {
		statusDone <- alerts.LiveStatus(context.Background(), f.school.ID)
	}()

	select {
	case status := <-statusDone:
		// The stuck alert is not visible yet: it goes live only after
		// the ledger acknowledges it.
		require.Empty(t, status)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("live status blocked behind an in-flight ledger append")
	}

	close(stalled.release)
	require.NoError(t, <-triggerDone)
	require.Len(t, alerts.LiveStatus(context.Background(), f.school.ID), 1)
}

// TestConcurrentTriggers verifies two principals signaling at the same
// instant both succeed with distinct ledger entries.
func TestConcurrentTriggers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	const principals = 20

	sessions := make([]*domain.Session, principals)
	for i := range sessions {
		sessions[i] = f.studentSession(t)
	}

	var wg sync.WaitGroup

	for _, session := range sessions {
		wg.Add(1)

		go func(session *domain.Session) {
			defer wg.Done()

			_, err := f.alerts.Trigger(context.Background(), session, "Main", "")
			require.NoError(t, err)
		}(session)
	}

	wg.Wait()

	status := f.alerts.LiveStatus(context.Background(), f.school.ID)
	require.Len(t, status, principals)

	events, err := f.ledger.ReadSince(context.Background(), f.school.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, principals)

	seen := make(map[uint64]struct{}, principals)
	for _, event := range events {
		seen[event.Sequence] = struct{}{}
	}

	require.Len(t, seen, principals)
}

// TestReplayReconstructsLiveSet verifies the log -> projection round trip: a
// coordinator built over an existing ledger sees exactly the unmatched
// Triggered events as active.
func TestReplayReconstructsLiveSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	staying := f.studentSession(t)
	leaving := f.studentSession(t)

	started, err := f.alerts.Trigger(context.Background(), staying, "Gym", "204")
	require.NoError(t, err)

	_, err = f.alerts.Trigger(context.Background(), leaving, "Main", "")
	require.NoError(t, err)

	require.NoError(t, f.alerts.Cancel(context.Background(), leaving))

	// Restart: rebuild ledger and coordinator from the persisted events.
	restartedLedger, err := ledger.NewService(context.Background(), f.events, 0)
	require.NoError(t, err)

	restarted, err := NewService(
		context.Background(), restartedLedger, f.registry, notification.NewHub(), []string{f.school.ID})
	require.NoError(t, err)

	status := restarted.LiveStatus(context.Background(), f.school.ID)
	require.Len(t, status, 1)
	require.Equal(t, staying.ID, status[0].Principal)
	require.Equal(t, "Gym", status[0].Building)
	require.Equal(t, "204", status[0].Room)

	// Replayed alerts keep their original start time.
	require.True(t, status[0].StartedAt.Equal(started.StartedAt))

	// The restarted coordinator can cancel what the old one started.
	require.NoError(t, restarted.Cancel(context.Background(), staying))
	require.Empty(t, restarted.LiveStatus(context.Background(), f.school.ID))
}
