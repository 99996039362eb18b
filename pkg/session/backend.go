package session

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// Backend abstracts session persistence. Each session is stored as two
// independently readable records keyed by session ID: its message log and its
// metadata. Implementations must be safe for concurrent use.
type Backend interface {
	// SaveMetadata creates or updates the metadata record for a session.
	SaveMetadata(ctx context.Context, meta *Metadata) error

	// LoadMetadata retrieves the metadata record by session ID.
	// Returns ErrSessionNotFound if the session doesn't exist.
	LoadMetadata(ctx context.Context, sessionID string) (*Metadata, error)

	// AppendMessage adds a message to a session's log (append-only).
	AppendMessage(ctx context.Context, sessionID string, msg *Message) error

	// LoadMessages retrieves all messages for a session in append order.
	LoadMessages(ctx context.Context, sessionID string) ([]*Message, error)

	// DeleteSession removes both records for a session. Removal is hard:
	// no tombstone remains.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListMetadata returns metadata for every stored session.
	ListMetadata(ctx context.Context) ([]*Metadata, error)

	// Close releases any resources held by the backend.
	Close() error
}
