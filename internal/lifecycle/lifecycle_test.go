package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovoice/agrovoice/pkg/session"
)

// seedSession writes a session with a back-dated activity timestamp straight
// through the backend, then builds the store over it.
func seedSessions(t *testing.T, ages map[string]time.Duration) *session.Store {
	t.Helper()
	backend, err := session.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	now := time.Now().UTC()
	for id, age := range ages {
		meta := &session.Metadata{
			ID:           id,
			CreatedAt:    now.Add(-age),
			LastActivity: now.Add(-age),
			MessageCount: 2,
		}
		require.NoError(t, backend.SaveMetadata(context.Background(), meta))
	}

	store := session.NewStore(backend)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sessionIDs(t *testing.T, store *session.Store) map[string]bool {
	t.Helper()
	metas, err := store.List(context.Background())
	require.NoError(t, err)
	ids := make(map[string]bool, len(metas))
	for _, m := range metas {
		ids[m.ID] = true
	}
	return ids
}

func TestCleanupOnceEvictsByAge(t *testing.T) {
	store := seedSessions(t, map[string]time.Duration{
		"ancient": 40 * 24 * time.Hour,
		"recent":  10 * 24 * time.Hour,
		"fresh":   24 * time.Hour,
	})
	m := NewManager(store, Policy{MaxAge: 30 * 24 * time.Hour, MaxSessions: 100})

	removed, err := m.CleanupOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids := sessionIDs(t, store)
	assert.False(t, ids["ancient"])
	assert.True(t, ids["recent"])
	assert.True(t, ids["fresh"])
}

func TestCleanupOnceEvictsByCount(t *testing.T) {
	store := seedSessions(t, map[string]time.Duration{
		"s1": 5 * 24 * time.Hour,
		"s2": 4 * 24 * time.Hour,
		"s3": 3 * 24 * time.Hour,
		"s4": 2 * 24 * time.Hour,
		"s5": 1 * 24 * time.Hour,
	})
	m := NewManager(store, Policy{MaxAge: 30 * 24 * time.Hour, MaxSessions: 3})

	removed, err := m.CleanupOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed, "the two oldest sessions must go")

	ids := sessionIDs(t, store)
	assert.False(t, ids["s1"])
	assert.False(t, ids["s2"])
	assert.True(t, ids["s3"])
	assert.True(t, ids["s4"])
	assert.True(t, ids["s5"])
}

func TestCleanupOnceCountsEachSessionOnce(t *testing.T) {
	// One session violates both rules; it must be removed and counted once.
	store := seedSessions(t, map[string]time.Duration{
		"stale": 60 * 24 * time.Hour,
		"new1":  1 * time.Hour,
		"new2":  2 * time.Hour,
	})
	m := NewManager(store, Policy{MaxAge: 30 * 24 * time.Hour, MaxSessions: 2})

	removed, err := m.CleanupOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, sessionIDs(t, store), 2)
}

func TestCleanupOnceNothingToDo(t *testing.T) {
	store := seedSessions(t, map[string]time.Duration{"a": time.Hour})
	m := NewManager(store, Policy{MaxAge: 30 * 24 * time.Hour, MaxSessions: 100})

	removed, err := m.CleanupOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestComputeAnalytics(t *testing.T) {
	store := seedSessions(t, map[string]time.Duration{
		"old": 48 * time.Hour,
		"new": 1 * time.Hour,
	})
	m := NewManager(store, Policy{})

	stats, err := m.ComputeAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 4, stats.TotalMessages)
	assert.InDelta(t, 2.0, stats.AvgMessages, 1e-9)
	assert.Equal(t, "old", stats.OldestSessionID)
	assert.Equal(t, "new", stats.NewestSessionID)

	total := 0
	for _, n := range stats.SessionsByDate {
		total += n
	}
	assert.Equal(t, 2, total, "every session appears under exactly one date")
}

func TestComputeAnalyticsEmptyStore(t *testing.T) {
	store := seedSessions(t, nil)
	m := NewManager(store, Policy{})

	stats, err := m.ComputeAnalytics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSessions)
	assert.Zero(t, stats.AvgMessages)
	assert.Empty(t, stats.OldestSessionID)
}

func TestSummarizeMissingSession(t *testing.T) {
	store := seedSessions(t, nil)
	m := NewManager(store, Policy{})

	_, err := m.Summarize(context.Background(), "ghost")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
