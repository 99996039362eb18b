package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	store := NewStore(backend, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLazyCreate(t *testing.T) {
	var created []string
	store := newTestStore(t, WithCreateHook(func(id string) {
		created = append(created, id)
	}))
	ctx := context.Background()

	snap, err := store.Get(ctx, "farm-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Meta.ID != "farm-1" {
		t.Errorf("Meta.ID = %q, want farm-1", snap.Meta.ID)
	}
	if len(snap.Messages) != 0 {
		t.Errorf("new session has %d messages, want 0", len(snap.Messages))
	}
	if !snap.Meta.CreatedAt.Equal(snap.Meta.LastActivity) {
		t.Errorf("CreatedAt = %v, LastActivity = %v, want equal on creation",
			snap.Meta.CreatedAt, snap.Meta.LastActivity)
	}

	// A second reference must not fire the hook again.
	if _, err := store.Get(ctx, "farm-1"); err != nil {
		t.Fatalf("Get() second call error = %v", err)
	}
	if len(created) != 1 || created[0] != "farm-1" {
		t.Errorf("create hook fired %d times (%v), want once for farm-1", len(created), created)
	}
}

func TestStoreAppendUpdatesMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turns := []struct {
		role Role
		text string
	}{
		{RoleUser, "my cabbage has holes"},
		{RoleAssistant, "check for caterpillars"},
		{RoleUser, "what fertilizer should I use"},
	}

	var prev *Snapshot
	for i, turn := range turns {
		msg, err := store.Append(ctx, "farm-2", turn.role, turn.text)
		if err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
		if msg.ID == "" {
			t.Fatalf("Append(%d) returned message without ID", i)
		}

		snap, err := store.Get(ctx, "farm-2")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if snap.Meta.MessageCount != i+1 {
			t.Errorf("MessageCount = %d, want %d", snap.Meta.MessageCount, i+1)
		}
		if len(snap.Messages) != snap.Meta.MessageCount {
			t.Errorf("transcript length %d disagrees with MessageCount %d",
				len(snap.Messages), snap.Meta.MessageCount)
		}
		if prev != nil && snap.Meta.LastActivity.Before(prev.Meta.LastActivity) {
			t.Errorf("LastActivity went backwards: %v -> %v",
				prev.Meta.LastActivity, snap.Meta.LastActivity)
		}
		prev = snap
	}

	if prev.Meta.UserMessageCount != 2 {
		t.Errorf("UserMessageCount = %d, want 2", prev.Meta.UserMessageCount)
	}
	if prev.Meta.AssistantMessageCount != 1 {
		t.Errorf("AssistantMessageCount = %d, want 1", prev.Meta.AssistantMessageCount)
	}
}

func TestStoreAppendSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	store := NewStore(backend)
	ctx := context.Background()

	if _, err := store.Append(ctx, "farm-3", RoleUser, "hello"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := store.Append(ctx, "farm-3", RoleAssistant, "hi there"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	backend2, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() reopen error = %v", err)
	}
	store2 := NewStore(backend2)
	defer func() { _ = store2.Close() }()

	snap, err := store2.Get(ctx, "farm-3")
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("reloaded transcript length = %d, want 2", len(snap.Messages))
	}
	if snap.Messages[0].Text != "hello" || snap.Messages[1].Text != "hi there" {
		t.Errorf("reloaded transcript out of order: %q, %q",
			snap.Messages[0].Text, snap.Messages[1].Text)
	}
	if snap.Meta.MessageCount != 2 {
		t.Errorf("reloaded MessageCount = %d, want 2", snap.Meta.MessageCount)
	}
}

func TestStoreMergeContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MergeContext(ctx, "farm-4", map[string]string{
		"crop_type": "cabbage",
		"region":    "punjab",
	}); err != nil {
		t.Fatalf("MergeContext() error = %v", err)
	}

	// Key-level overwrite: region survives, crop_type changes.
	if err := store.MergeContext(ctx, "farm-4", map[string]string{
		"crop_type": "wheat",
	}); err != nil {
		t.Fatalf("MergeContext() error = %v", err)
	}

	meta, err := store.Stats(ctx, "farm-4")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if meta.Context["crop_type"] != "wheat" {
		t.Errorf("crop_type = %q, want wheat", meta.Context["crop_type"])
	}
	if meta.Context["region"] != "punjab" {
		t.Errorf("region = %q, want punjab (must survive partial merge)", meta.Context["region"])
	}
}

func TestStoreStatsNeverCreates(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Stats(context.Background(), "no-such-session")
	if err != ErrSessionNotFound {
		t.Fatalf("Stats() error = %v, want ErrSessionNotFound", err)
	}

	// Stats must not have materialized the session as a side effect.
	metas, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("List() returned %d sessions after Stats miss, want 0", len(metas))
	}
}

func TestStoreDeleteRetiresCachedState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "farm-6", RoleUser, "first"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// An in-flight request holds the state it looked up before the sweep.
	store.mu.Lock()
	stale := store.sessions["farm-6"]
	store.mu.Unlock()

	if err := store.Delete(ctx, "farm-6"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	stale.mu.Lock()
	retired := stale.deleted
	stale.mu.Unlock()
	if !retired {
		t.Fatal("evicted session state was not retired; a stale writer could resurrect it")
	}

	// A later append starts a fresh session: one message, matching count.
	if _, err := store.Append(ctx, "farm-6", RoleUser, "second"); err != nil {
		t.Fatalf("Append() after delete error = %v", err)
	}
	snap, err := store.Get(ctx, "farm-6")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Meta.MessageCount != 1 || len(snap.Messages) != 1 {
		t.Errorf("after delete+append: MessageCount = %d, transcript = %d, want 1 and 1",
			snap.Meta.MessageCount, len(snap.Messages))
	}
	if snap.Messages[0].Text != "second" {
		t.Errorf("transcript[0] = %q, want the post-delete message only", snap.Messages[0].Text)
	}
}

func TestStoreDeleteAppendContention(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	store := NewStore(backend)
	ctx := context.Background()

	if _, err := store.Append(ctx, "farm-7", RoleUser, "first"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Hold the per-session lock so both the sweep's delete and a second
	// append queue behind it, then release and let them race.
	store.mu.Lock()
	st := store.sessions["farm-7"]
	store.mu.Unlock()
	st.mu.Lock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = store.Delete(ctx, "farm-7")
	}()
	go func() {
		defer wg.Done()
		_, _ = store.Append(ctx, "farm-7", RoleUser, "second")
	}()
	time.Sleep(20 * time.Millisecond)
	st.mu.Unlock()
	wg.Wait()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Whichever order won, the durable state must be self-consistent: the
	// session is either gone or its metadata agrees with its transcript.
	backend2, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() reopen error = %v", err)
	}
	store2 := NewStore(backend2)
	defer func() { _ = store2.Close() }()

	meta, err := store2.Stats(ctx, "farm-7")
	if err == ErrSessionNotFound {
		return
	}
	if err != nil {
		t.Fatalf("Stats() after reload error = %v", err)
	}
	snap, err := store2.Get(ctx, "farm-7")
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	if meta.MessageCount != len(snap.Messages) {
		t.Errorf("durable MessageCount = %d but transcript has %d message(s)",
			meta.MessageCount, len(snap.Messages))
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "farm-5", RoleUser, "bye"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Delete(ctx, "farm-5"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Stats(ctx, "farm-5"); err != ErrSessionNotFound {
		t.Fatalf("Stats() after delete error = %v, want ErrSessionNotFound", err)
	}
}
