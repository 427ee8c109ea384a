package session

import (
	"sync"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// Session wraps one live game with its serialization lock and bookkeeping.
// All mutations must go through Do so that at most one mutation per session
// is in flight at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	game         *engine.Game
	lastAccessed time.Time
	mu           sync.Mutex
	finalize     sync.Once
}

func newSession(game *engine.Game) *Session {
	now := time.Now()
	return &Session{
		ID:           game.SessionID,
		CreatedAt:    now,
		lastAccessed: now,
		game:         game,
	}
}

// Do runs fn against the live game while holding the session lock. The game
// reference must not escape fn; use Snapshot for anything long-lived.
func (s *Session) Do(fn func(*engine.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = time.Now()
	return fn(s.game)
}

// LastAccessed returns when the session last ran a mutation. Safe to call
// concurrently with Do; the cleanup job reads this against live gameplay.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Snapshot returns a deep copy of the current game state
func (s *Session) Snapshot() *engine.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// Finalize runs fn with a snapshot of the final state exactly once, no
// matter how many completion signals race in. Subsequent calls report false
// and do nothing, which is what de-duplicates the durable finalize write.
func (s *Session) Finalize(fn func(*engine.Game)) bool {
	ran := false
	s.finalize.Do(func() {
		ran = true
		fn(s.Snapshot())
	})
	return ran
}
