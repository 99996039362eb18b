package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// Analytics summarizes the stored session population. It is computed fresh
// from the store on every call; nothing here is cached.
type Analytics struct {
	TotalSessions     int            `json:"total_sessions"`
	TotalMessages     int            `json:"total_messages"`
	AvgMessages       float64        `json:"avg_messages_per_session"`
	OldestSessionID   string         `json:"oldest_session_id,omitempty"`
	NewestSessionID   string         `json:"newest_session_id,omitempty"`
	SessionsByDate    map[string]int `json:"sessions_by_date"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
}

// ComputeAnalytics aggregates over all stored sessions. Dates are UTC
// calendar days of session creation.
func (m *Manager) ComputeAnalytics(ctx context.Context) (*Analytics, error) {
	metas, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	a := &Analytics{SessionsByDate: make(map[string]int)}
	var oldest, newest time.Time
	for _, meta := range metas {
		a.TotalSessions++
		a.TotalMessages += meta.MessageCount
		a.UserMessages += meta.UserMessageCount
		a.AssistantMessages += meta.AssistantMessageCount
		a.SessionsByDate[meta.CreatedAt.UTC().Format("2006-01-02")]++

		if oldest.IsZero() || meta.CreatedAt.Before(oldest) {
			oldest = meta.CreatedAt
			a.OldestSessionID = meta.ID
		}
		if newest.IsZero() || meta.CreatedAt.After(newest) {
			newest = meta.CreatedAt
			a.NewestSessionID = meta.ID
		}
	}
	if a.TotalSessions > 0 {
		a.AvgMessages = float64(a.TotalMessages) / float64(a.TotalSessions)
	}
	return a, nil
}

// Summary describes a single session for CLI display.
type Summary struct {
	ID                string            `json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	LastActivity      time.Time         `json:"last_activity"`
	Duration          time.Duration     `json:"duration"`
	MessageCount      int               `json:"message_count"`
	UserMessages      int               `json:"user_messages"`
	AssistantMessages int               `json:"assistant_messages"`
	Context           map[string]string `json:"context,omitempty"`
}

// Summarize returns a summary of one session. Missing sessions surface
// session.ErrSessionNotFound.
func (m *Manager) Summarize(ctx context.Context, sessionID string) (*Summary, error) {
	meta, err := m.store.Stats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		ID:                meta.ID,
		CreatedAt:         meta.CreatedAt,
		LastActivity:      meta.LastActivity,
		Duration:          meta.LastActivity.Sub(meta.CreatedAt),
		MessageCount:      meta.MessageCount,
		UserMessages:      meta.UserMessageCount,
		AssistantMessages: meta.AssistantMessageCount,
		Context:           meta.Context,
	}, nil
}
