// Package lifecycle owns session cleanup, analytics, and export. Cleanup is
// driven by a cron sweep; everything else is computed fresh from the session
// store on demand.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agrovoice/agrovoice/internal/observability"
	"github.com/agrovoice/agrovoice/pkg/session"
)

// Policy controls eviction.
type Policy struct {
	// MaxAge evicts sessions whose last activity is older than this.
	MaxAge time.Duration
	// MaxSessions caps the stored session count; oldest are evicted first.
	MaxSessions int
	// SweepInterval is the minimum time between sweeps.
	SweepInterval time.Duration
}

// Manager runs the cleanup sweep and serves analytics and exports.
type Manager struct {
	store  *session.Store
	policy Policy

	cron *cron.Cron

	mu        sync.Mutex
	lastSweep time.Time
}

// NewManager creates a lifecycle manager over the session store.
func NewManager(store *session.Store, policy Policy) *Manager {
	if policy.MaxAge <= 0 {
		policy.MaxAge = 30 * 24 * time.Hour
	}
	if policy.MaxSessions <= 0 {
		policy.MaxSessions = 100
	}
	if policy.SweepInterval <= 0 {
		policy.SweepInterval = 24 * time.Hour
	}
	return &Manager{store: store, policy: policy}
}

// Start schedules the sweep. The cron fires hourly; a sweep only runs when
// the configured interval has elapsed since the previous one, so intervals
// have hourly granularity regardless of their length.
func (m *Manager) Start() error {
	if m.cron != nil {
		return nil
	}
	m.cron = cron.New()
	_, err := m.cron.AddFunc("@hourly", func() {
		m.mu.Lock()
		due := time.Since(m.lastSweep) >= m.policy.SweepInterval
		m.mu.Unlock()
		if !due {
			return
		}
		if _, err := m.CleanupOnce(context.Background()); err != nil {
			log.Printf("cleanup sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cleanup sweep: %w", err)
	}
	m.cron.Start()
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (m *Manager) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
}

// CleanupOnce evicts sessions idle longer than MaxAge, then evicts the oldest
// remaining sessions until the count is within MaxSessions. A session is
// counted at most once even when both rules apply. Returns the number of
// sessions removed.
func (m *Manager) CleanupOnce(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.lastSweep = time.Now()
	m.mu.Unlock()

	metas, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := time.Now().UTC().Add(-m.policy.MaxAge)
	victims := make(map[string]string) // id -> reason
	survivors := make([]*session.Metadata, 0, len(metas))
	for _, meta := range metas {
		if meta.LastActivity.Before(cutoff) {
			victims[meta.ID] = "age"
		} else {
			survivors = append(survivors, meta)
		}
	}

	if excess := len(survivors) - m.policy.MaxSessions; excess > 0 {
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].LastActivity.Before(survivors[j].LastActivity)
		})
		for _, meta := range survivors[:excess] {
			victims[meta.ID] = "count"
		}
	}

	removed := 0
	for id, reason := range victims {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Printf("evict session %s: %v", id, err)
			continue
		}
		observability.SessionsEvicted.WithLabelValues(reason).Inc()
		removed++
	}
	if removed > 0 {
		log.Printf("cleanup sweep removed %d session(s)", removed)
	}
	return removed, nil
}
