package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RecordAndQuery(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{RunID: "r1", Directory: "docs-update-api", Ref: "refs/heads/docs/update-api", Mode: "full", Uploaded: 12, Outcome: OutcomePublished, StartedAt: base, Duration: 90 * time.Second},
		{RunID: "r2", Directory: "main", Ref: "main", Mode: "", Outcome: OutcomeBuildFailed, Error: "site build failed", StartedAt: base.Add(time.Minute)},
		{RunID: "r3", Directory: "docs-update-api", Ref: "refs/heads/docs/update-api", Mode: "incremental", Outcome: OutcomePublished, InvalidationID: "I2", StartedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		require.NoError(t, store.Record(ctx, r))
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "r3", recent[0].RunID)
	require.Equal(t, "I2", recent[0].InvalidationID)

	byDir, err := store.ByDirectory(ctx, "docs-update-api", 10)
	require.NoError(t, err)
	require.Len(t, byDir, 2)
	require.Equal(t, "r1", byDir[1].RunID)
	require.Equal(t, 12, byDir[1].Uploaded)
	require.Equal(t, 90*time.Second, byDir[1].Duration)
	require.True(t, base.Equal(byDir[1].StartedAt))

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestSQLiteStore_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), Run{RunID: "x", Directory: "d", Outcome: OutcomeFailed}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, OutcomeFailed, runs[0].Outcome)
	require.False(t, runs[0].StartedAt.IsZero())
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	require.NoError(t, s.Record(context.Background(), Run{}))
	runs, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, runs)
}
