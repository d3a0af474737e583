// Package session gives every browser its own inventory ledger.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/freezerinv/internal/ledger"
)

type Session struct {
	ID     string
	Ledger *ledger.Ledger

	lastSeen time.Time
}

// Manager maps opaque session IDs to sessions and expires the idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns the live session for id, or a fresh one with a new ID when id
// is unknown or expired. The second result reports whether it was created.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s, ok := m.sessions[id]; ok && now.Sub(s.lastSeen) < m.ttl {
		s.lastSeen = now
		return s, false
	}

	s := &Session{
		ID:       uuid.NewString(),
		Ledger:   ledger.New(),
		lastSeen: now,
	}
	m.sessions[s.ID] = s
	return s, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) >= m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("expired idle sessions", "count", n, "active", m.Len())
			}
		}
	}
}
