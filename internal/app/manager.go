package app

import (
	"sync"
	"time"

	"ai-grocery-checklist/internal/metrics"
	"ai-grocery-checklist/internal/shopping"

	"go.uber.org/zap"
)

// SlotKey returns the save slot key for a session. The empty id maps to the
// default slot used by the command line.
func SlotKey(sessionID string) string {
	if sessionID == "" {
		return shopping.DefaultSlotKey
	}
	return shopping.DefaultSlotKey + ":" + sessionID
}

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

// Manager hands out one Session per browser or chat. Sessions live in
// memory; only their save slots outlive the process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession

	kv       shopping.KV
	gen      ListGenerator
	recorder *metrics.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager whose sessions share kv, gen and recorder.
func NewManager(kv shopping.KV, gen ListGenerator, recorder *metrics.Recorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*managedSession),
		kv:       kv,
		gen:      gen,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.sessions[id]; ok {
		ms.lastSeen = m.now()
		return ms.session
	}

	s := NewSession(m.gen, shopping.NewRepository(m.kv, SlotKey(id)), m.recorder, m.logger)
	m.sessions[id] = &managedSession{session: s, lastSeen: m.now()}
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Prune drops sessions not used for longer than idle and returns how many
// were dropped. Their saved lists are untouched.
func (m *Manager) Prune(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	dropped := 0
	for id, ms := range m.sessions {
		if ms.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		m.logger.Debug("pruned idle sessions", zap.Int("dropped", dropped), zap.Int("remaining", len(m.sessions)))
	}
	return dropped
}
