package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions  map[string]*Session
	snapshots SnapshotStore
	mu        sync.RWMutex
}

// NewManager creates a new session manager without persistence
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// NewManagerWithSnapshots creates a session manager backed by a snapshot
// store, enabling mid-game recovery
func NewManagerWithSnapshots(snapshots SnapshotStore) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		snapshots: snapshots,
	}
}

// Create registers a new session for the given game. The game's SessionID
// is the registry key.
func (m *Manager) Create(game *engine.Game) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[game.SessionID]; exists {
		return nil, ErrSessionAlreadyExists
	}

	sess := newSession(game)
	m.sessions[game.SessionID] = sess
	return sess, nil
}

// Get retrieves a session by ID, recovering from the snapshot store when the
// session is no longer in memory.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[id]
	m.mu.RUnlock()

	if exists {
		return sess, nil
	}

	if m.snapshots == nil {
		return nil, ErrSessionNotFound
	}

	state, err := m.snapshots.Load(id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have recovered it while we were loading
	if sess, exists := m.sessions[id]; exists {
		return sess, nil
	}
	sess = newSession(state)
	m.sessions[id] = sess
	return sess, nil
}

// List returns all in-memory sessions
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session from memory and from the snapshot store
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, inMemory := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.snapshots != nil && m.snapshots.Exists(id) {
		if err := m.snapshots.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session from memory without touching its snapshot
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// SaveSnapshot persists the current state of a session. Returns nil when no
// snapshot store is configured.
func (m *Manager) SaveSnapshot(id string) error {
	if m.snapshots == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.snapshots.Save(id, sess.Snapshot())
}

// CleanupExpired evicts sessions that have not been accessed within maxAge.
// Snapshots are kept so finished-but-idle games remain recoverable.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted snapshots into memory, typically
// on startup
func (m *Manager) LoadPersistedSessions() error {
	if m.snapshots == nil {
		return nil
	}

	ids, err := m.snapshots.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.sessions[id]; exists {
			continue
		}

		state, err := m.snapshots.Load(id)
		if err != nil {
			log.Printf("Warning: Failed to load persisted session %s: %v", id, err)
			continue
		}

		m.sessions[id] = newSession(state)
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted sessions from storage", loaded)
	}

	return nil
}
