package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend using Redis. It provides distributed
// session storage suitable for multi-node deployments.
type RedisBackend struct {
	client *redis.Client
	prefix string
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: "agrovoice:session:").
	Prefix string
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisBackend creates a new Redis storage backend.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "agrovoice:session:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{client: client, prefix: prefix}, nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing client.
// This is useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "agrovoice:session:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// Key helpers
func (b *RedisBackend) metaKey(sessionID string) string {
	return b.prefix + "meta:" + sessionID
}

func (b *RedisBackend) logKey(sessionID string) string {
	return b.prefix + "log:" + sessionID
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + "ids"
}

// SaveMetadata creates or updates the metadata record for a session.
func (b *RedisBackend) SaveMetadata(ctx context.Context, meta *Metadata) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.metaKey(meta.ID), data, 0)
	pipe.SAdd(ctx, b.indexKey(), meta.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// LoadMetadata retrieves the metadata record by session ID.
func (b *RedisBackend) LoadMetadata(ctx context.Context, sessionID string) (*Metadata, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	data, err := b.client.Get(ctx, b.metaKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// AppendMessage adds a message to a session's log (append-only).
func (b *RedisBackend) AppendMessage(ctx context.Context, sessionID string, msg *Message) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := b.client.RPush(ctx, b.logKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// LoadMessages retrieves all messages for a session in append order.
func (b *RedisBackend) LoadMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	raw, err := b.client.LRange(ctx, b.logKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	messages := make([]*Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// DeleteSession removes both records for a session.
func (b *RedisBackend) DeleteSession(ctx context.Context, sessionID string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	exists, err := b.client.Exists(ctx, b.metaKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.metaKey(sessionID))
	pipe.Del(ctx, b.logKey(sessionID))
	pipe.SRem(ctx, b.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListMetadata returns metadata for every stored session.
func (b *RedisBackend) ListMetadata(ctx context.Context) ([]*Metadata, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}

	metas := make([]*Metadata, 0, len(ids))
	for _, id := range ids {
		meta, err := b.LoadMetadata(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			// Index entry outlived its record; self-heal.
			_ = b.client.SRem(ctx, b.indexKey(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Close releases the Redis client.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}

func (b *RedisBackend) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}
