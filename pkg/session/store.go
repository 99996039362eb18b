package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time copy of a session's transcript and metadata.
// The transcript length always agrees with Metadata.MessageCount.
type Snapshot struct {
	Meta     *Metadata
	Messages []*Message
}

// Store is the session store front. It owns per-session locking so that a
// message append and its metadata update are observed atomically, caches
// session state in memory, and persists every mutation through the backend.
//
// The in-memory copy is authoritative: if a persistence flush fails the
// memory state is kept and the error is surfaced to the caller so retries or
// alerts are possible.
type Store struct {
	backend  Backend
	mu       sync.Mutex
	sessions map[string]*sessionState
	onCreate func(sessionID string)
	closed   bool
}

type sessionState struct {
	mu       sync.Mutex
	meta     *Metadata
	messages []*Message
	// deleted marks a state retired by Delete. A writer that looked the
	// state up before the delete must re-resolve instead of writing
	// through it.
	deleted bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCreateHook registers a callback fired exactly once when a session is
// created by first reference.
func WithCreateHook(fn func(sessionID string)) StoreOption {
	return func(s *Store) { s.onCreate = fn }
}

// NewStore creates a session store over the given backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:  backend,
		sessions: make(map[string]*sessionState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a snapshot of the session, creating it with empty state if it
// does not exist yet. Creation fires the create hook once.
func (s *Store) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	st, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	return st.snapshot(), nil
}

// Append adds a timestamped, uniquely identified message to the session and
// updates its metadata atomically with respect to concurrent readers. The
// session is created lazily if absent.
func (s *Store) Append(ctx context.Context, sessionID string, role Role, text string) (*Message, error) {
	st, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()

	msg := &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}

	// Memory first: it stays authoritative even when the flush fails.
	st.messages = append(st.messages, msg)
	st.meta.MessageCount = len(st.messages)
	st.meta.LastActivity = msg.Timestamp
	switch role {
	case RoleUser:
		st.meta.UserMessageCount++
	case RoleAssistant:
		st.meta.AssistantMessageCount++
	}

	if err := s.backend.AppendMessage(ctx, sessionID, msg); err != nil {
		return msg, fmt.Errorf("append message: %w", err)
	}
	if err := s.backend.SaveMetadata(ctx, st.meta); err != nil {
		return msg, fmt.Errorf("save session metadata: %w", err)
	}

	return msg, nil
}

// MergeContext applies key-level updates to the session's context mapping
// (overwrite per key, never replacement of the whole mapping) and persists
// the metadata record.
func (s *Store) MergeContext(ctx context.Context, sessionID string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	st, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()

	if st.meta.Context == nil {
		st.meta.Context = make(map[string]string, len(updates))
	}
	for k, v := range updates {
		st.meta.Context[k] = v
	}

	if err := s.backend.SaveMetadata(ctx, st.meta); err != nil {
		return fmt.Errorf("save session metadata: %w", err)
	}
	return nil
}

// Stats returns the session's metadata, or ErrSessionNotFound if the session
// has never been stored. Unlike Get it never creates a session.
func (s *Store) Stats(ctx context.Context, sessionID string) (*Metadata, error) {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		st.mu.Lock()
		if !st.deleted {
			meta := st.meta.Clone()
			st.mu.Unlock()
			return meta, nil
		}
		st.mu.Unlock()
	}
	return s.backend.LoadMetadata(ctx, sessionID)
}

// List returns metadata for every stored session.
func (s *Store) List(ctx context.Context) ([]*Metadata, error) {
	return s.backend.ListMetadata(ctx)
}

// Delete permanently removes a session's message log and metadata. The
// per-session lock is held for the duration, so a delete can never interleave
// with an in-flight append against the same session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if ok {
		st.mu.Lock()
		defer st.mu.Unlock()
	}

	if err := s.backend.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	// Retire the state before releasing its lock. A writer that resolved
	// this state before the delete re-resolves through acquire and starts
	// from a fresh, empty session instead of the evicted transcript.
	if ok {
		st.deleted = true
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Close releases the store and its backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.sessions = make(map[string]*sessionState)
	return s.backend.Close()
}

// lockSession returns the session's state with its lock held. If the state
// was retired by a concurrent Delete between lookup and lock, the lookup is
// retried so the caller never operates on an evicted transcript.
func (s *Store) lockSession(ctx context.Context, sessionID string) (*sessionState, error) {
	for {
		st, err := s.acquire(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		st.mu.Lock()
		if !st.deleted {
			return st, nil
		}
		st.mu.Unlock()
	}
}

// acquire returns the cached state for a session, loading it from the backend
// or creating it if absent.
func (s *Store) acquire(ctx context.Context, sessionID string) (*sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	if st, ok := s.sessions[sessionID]; ok {
		return st, nil
	}

	meta, err := s.backend.LoadMetadata(ctx, sessionID)
	switch {
	case err == nil:
		messages, err := s.backend.LoadMessages(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		st := &sessionState{meta: meta, messages: messages}
		s.sessions[sessionID] = st
		return st, nil

	case err == ErrSessionNotFound:
		now := time.Now().UTC()
		meta := &Metadata{
			ID:           sessionID,
			CreatedAt:    now,
			LastActivity: now,
			Context:      make(map[string]string),
		}
		if err := s.backend.SaveMetadata(ctx, meta); err != nil {
			return nil, fmt.Errorf("save session metadata: %w", err)
		}
		st := &sessionState{meta: meta}
		s.sessions[sessionID] = st
		if s.onCreate != nil {
			s.onCreate(sessionID)
		}
		log.Printf("session created: %s", sessionID)
		return st, nil

	default:
		return nil, fmt.Errorf("load session metadata: %w", err)
	}
}

func (st *sessionState) snapshot() *Snapshot {
	messages := make([]*Message, len(st.messages))
	copy(messages, st.messages)
	return &Snapshot{
		Meta:     st.meta.Clone(),
		Messages: messages,
	}
}
