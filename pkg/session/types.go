// Package session provides durable per-session conversation storage for
// AgroVoice. Each session holds an append-only message transcript, a mapping
// of derived context facts, and cached metadata that is re-derivable from the
// transcript alone.
package session

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry. Messages are append-only and
// immutable once written.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// Role indicates who authored the message.
	Role Role `json:"role"`
	// Text is the message content.
	Text string `json:"text"`
	// Timestamp is when the message was appended.
	Timestamp time.Time `json:"timestamp"`
}

// Metadata holds session summary information. It is stored separately from
// the transcript for quick listing without loading all messages.
type Metadata struct {
	// ID is the opaque client-chosen session identifier.
	ID string `json:"id"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"createdAt"`
	// LastActivity is the timestamp of the most recent append.
	LastActivity time.Time `json:"lastActivity"`
	// MessageCount is the total number of messages in the session.
	MessageCount int `json:"messageCount"`
	// UserMessageCount counts messages with RoleUser.
	UserMessageCount int `json:"userMessageCount"`
	// AssistantMessageCount counts messages with RoleAssistant.
	AssistantMessageCount int `json:"assistantMessageCount"`
	// Context holds accumulated structured facts (crop_type, region, ...).
	// Last write wins per key; no history is kept.
	Context map[string]string `json:"context,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	cp := *m
	if m.Context != nil {
		cp.Context = make(map[string]string, len(m.Context))
		for k, v := range m.Context {
			cp.Context[k] = v
		}
	}
	return &cp
}
