package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidSessionID is returned when a session ID contains unsafe characters.
var ErrInvalidSessionID = errors.New("invalid session ID: contains path separator or traversal sequence")

// validateSessionID checks that a session ID is safe to use as a path
// component. It rejects empty strings, path separators, and traversal
// sequences.
func validateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidSessionID
	}
	return nil
}

// FileBackend implements Backend using one JSONL message log and one JSON
// metadata record per session.
// Storage layout:
//
//	<baseDir>/
//	  ├── <session-id>.jsonl       # Message log, one message per line
//	  └── <session-id>.meta.json   # Metadata record
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileBackend creates a new file-based storage backend.
// If baseDir is empty, uses ~/.agrovoice/sessions.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".agrovoice", "sessions")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileBackend{baseDir: baseDir}, nil
}

func (f *FileBackend) metaPath(sessionID string) string {
	return filepath.Join(f.baseDir, sessionID+".meta.json")
}

func (f *FileBackend) logPath(sessionID string) string {
	return filepath.Join(f.baseDir, sessionID+".jsonl")
}

// SaveMetadata creates or updates the metadata record for a session.
func (f *FileBackend) SaveMetadata(ctx context.Context, meta *Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateSessionID(meta.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(f.metaPath(meta.ID), data, 0600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// LoadMetadata retrieves the metadata record by session ID.
func (f *FileBackend) LoadMetadata(ctx context.Context, sessionID string) (*Metadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.metaPath(sessionID)) // #nosec G304 - session ID validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, nil
}

// AppendMessage adds a message to a session's log (append-only).
func (f *FileBackend) AppendMessage(ctx context.Context, sessionID string, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	file, err := os.OpenFile(f.logPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 - session ID validated to prevent traversal
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// LoadMessages retrieves all messages for a session in append order.
func (f *FileBackend) LoadMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	file, err := os.Open(f.logPath(sessionID)) // #nosec G304 - session ID validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return []*Message{}, nil
		}
		return nil, fmt.Errorf("open message log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var messages []*Message
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan message log: %w", err)
	}
	return messages, nil
}

// DeleteSession removes both records for a session.
func (f *FileBackend) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	if _, err := os.Stat(f.metaPath(sessionID)); os.IsNotExist(err) {
		return ErrSessionNotFound
	}

	_ = os.Remove(f.logPath(sessionID)) // Log may not exist for an empty session
	if err := os.Remove(f.metaPath(sessionID)); err != nil {
		return fmt.Errorf("remove metadata: %w", err)
	}
	return nil
}

// ListMetadata returns metadata for every stored session.
func (f *FileBackend) ListMetadata(ctx context.Context) ([]*Metadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Metadata{}, nil
		}
		return nil, fmt.Errorf("read base directory: %w", err)
	}

	var metas []*Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.baseDir, entry.Name())) // #nosec G304 - names come from ReadDir
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, &meta)
	}
	return metas, nil
}

// Close releases any resources held by the backend.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
