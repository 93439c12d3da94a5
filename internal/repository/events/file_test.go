package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// TestFileRepository_EmptyLedger verifies a missing file reads as an empty log.
func TestFileRepository_EmptyLedger(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.jsonl"))

	events, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, events)
}

// TestFileRepository_AppendLoadRoundtrip ensures appended events are read
// back in write order with all fields intact.
func TestFileRepository_AppendLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	repo := NewFileRepository(path)

	ts := time.Now().UTC().Truncate(time.Second)
	want := []*domain.AlertEvent{
		{
			SchoolID:  "school-a",
			Principal: "p1",
			Kind:      domain.EventTriggered,
			Building:  "Gym",
			Room:      "204",
			Timestamp: ts,
			Sequence:  1,
		},
		{
			SchoolID:  "school-a",
			Principal: "p1",
			Kind:      domain.EventCancelled,
			Building:  "Gym",
			Room:      "204",
			Timestamp: ts.Add(time.Minute),
			Sequence:  2,
		},
	}

	for _, event := range want {
		require.NoError(t, repo.Append(context.Background(), event))
	}

	require.NoError(t, repo.Close())

	got, err := NewFileRepository(path).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		require.Equal(t, want[i].SchoolID, got[i].SchoolID)
		require.Equal(t, want[i].Kind, got[i].Kind)
		require.Equal(t, want[i].Room, got[i].Room)
		require.Equal(t, want[i].Sequence, got[i].Sequence)
		require.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
	}

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestFileRepository_AppendAfterReopen verifies the log is append-only across
// process restarts.
func TestFileRepository_AppendAfterReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")

	first := NewFileRepository(path)
	require.NoError(t, first.Append(context.Background(), &domain.AlertEvent{
		SchoolID: "school-a",
		Kind:     domain.EventTriggered,
		Building: "Main",
		Sequence: 1,
	}))
	require.NoError(t, first.Close())

	second := NewFileRepository(path)
	require.NoError(t, second.Append(context.Background(), &domain.AlertEvent{
		SchoolID: "school-a",
		Kind:     domain.EventCancelled,
		Building: "Main",
		Sequence: 2,
	}))

	events, err := second.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(1), events[0].Sequence)
	require.Equal(t, uint64(2), events[1].Sequence)

	require.NoError(t, second.Close())
}

// TestFileRepository_CancelledContext aborts the append before touching disk.
func TestFileRepository_CancelledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	repo := NewFileRepository(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Append(ctx, &domain.AlertEvent{
		SchoolID: "school-a",
		Kind:     domain.EventTriggered,
		Building: "Main",
		Sequence: 1,
	})
	require.Error(t, err)

	events, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, events)
}
