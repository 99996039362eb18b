package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewRedisBackendFromClient(client, "")
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestRedisBackendMetadataRoundTrip(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	meta := &Metadata{
		ID:           "sess-r1",
		CreatedAt:    now,
		LastActivity: now,
		MessageCount: 2,
		Context:      map[string]string{"region": "punjab"},
	}
	if err := backend.SaveMetadata(ctx, meta); err != nil {
		t.Fatalf("SaveMetadata() error = %v", err)
	}

	got, err := backend.LoadMetadata(ctx, "sess-r1")
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if got.ID != "sess-r1" || got.MessageCount != 2 || got.Context["region"] != "punjab" {
		t.Errorf("LoadMetadata() = %+v", got)
	}
}

func TestRedisBackendMessageLog(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		msg := &Message{ID: text, Role: RoleUser, Text: text, Timestamp: time.Now().UTC()}
		if err := backend.AppendMessage(ctx, "sess-r2", msg); err != nil {
			t.Fatalf("AppendMessage(%s) error = %v", text, err)
		}
	}

	messages, err := backend.LoadMessages(ctx, "sess-r2")
	if err != nil {
		t.Fatalf("LoadMessages() error = %v", err)
	}
	if len(messages) != 3 || messages[0].Text != "one" || messages[2].Text != "three" {
		t.Errorf("LoadMessages() order wrong: %+v", messages)
	}
}

func TestRedisBackendDeleteAndList(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	for _, id := range []string{"x", "y"} {
		meta := &Metadata{ID: id, CreatedAt: time.Now().UTC(), LastActivity: time.Now().UTC()}
		if err := backend.SaveMetadata(ctx, meta); err != nil {
			t.Fatalf("SaveMetadata(%s) error = %v", id, err)
		}
	}

	if err := backend.DeleteSession(ctx, "x"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if err := backend.DeleteSession(ctx, "x"); err != ErrSessionNotFound {
		t.Errorf("DeleteSession(deleted) error = %v, want ErrSessionNotFound", err)
	}

	metas, err := backend.ListMetadata(ctx)
	if err != nil {
		t.Fatalf("ListMetadata() error = %v", err)
	}
	if len(metas) != 1 || metas[0].ID != "y" {
		t.Errorf("ListMetadata() = %+v, want only y", metas)
	}
}

func TestRedisBackendClosed(t *testing.T) {
	backend := newTestRedisBackend(t)
	if err := backend.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := backend.LoadMetadata(context.Background(), "any"); err != ErrStorageClosed {
		t.Errorf("LoadMetadata() after close error = %v, want ErrStorageClosed", err)
	}
}
