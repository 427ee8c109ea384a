package session

import (
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// SnapshotStore defines the interface for persisting session state
type SnapshotStore interface {
	// Save persists a session snapshot keyed by session id
	Save(id string, state *engine.Game) error

	// Load retrieves the last persisted snapshot for a session
	Load(id string) (*engine.Game, error)

	// Delete removes a persisted snapshot
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a snapshot exists for the session
	Exists(id string) bool
}

// PersistedSession is the JSON structure written by file-based stores
type PersistedSession struct {
	ID      string       `json:"id"`
	SavedAt time.Time    `json:"saved_at"`
	State   *engine.Game `json:"state"`
}
