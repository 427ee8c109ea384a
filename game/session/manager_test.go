package session

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

func newTestGame(t *testing.T, id string) *engine.Game {
	t.Helper()

	media := make([]engine.MediaItem, 0, 4)
	for i := 0; i < 4; i++ {
		media = append(media, engine.MediaItem{
			ID:   fmt.Sprintf("media-%d", i),
			URL:  fmt.Sprintf("https://media.example/%d.jpg", i),
			Type: "image",
		})
	}

	game, err := engine.NewGame(id, engine.Player{ID: "p1", DisplayName: "Alice"}, media, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return game
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()

	t.Run("create session", func(t *testing.T) {
		sess, err := manager.Create(newTestGame(t, "test-session"))
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if sess.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", sess.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create(newTestGame(t, "test-session"))
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	manager.Create(newTestGame(t, "get-test"))

	t.Run("get existing session", func(t *testing.T) {
		sess, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if sess.ID != "get-test" {
			t.Errorf("Expected session ID 'get-test', got '%s'", sess.ID)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	manager.Create(newTestGame(t, "delete-test"))

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()

	active, _ := manager.Create(newTestGame(t, "active"))
	expired, _ := manager.Create(newTestGame(t, "expired"))

	expired.mu.Lock()
	expired.lastAccessed = time.Now().Add(-2 * time.Hour)
	expired.mu.Unlock()
	active.mu.Lock()
	active.lastAccessed = time.Now()
	active.mu.Unlock()

	if removed := manager.CleanupExpired(1 * time.Hour); removed != 1 {
		t.Errorf("Expected 1 session removed, got %d", removed)
	}

	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be evicted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to remain")
	}
}

// staleIndexStore claims snapshots exist that Load cannot find, the window a
// concurrent delete leaves behind
type staleIndexStore struct{}

func (staleIndexStore) Save(id string, state *engine.Game) error { return nil }
func (staleIndexStore) Load(id string) (*engine.Game, error)     { return nil, ErrSessionNotFound }
func (staleIndexStore) Delete(id string) error                   { return ErrSessionNotFound }
func (staleIndexStore) ListAll() ([]string, error)               { return nil, nil }
func (staleIndexStore) Exists(id string) bool                    { return true }

func TestManager_GetWithStaleSnapshotIndex(t *testing.T) {
	manager := NewManagerWithSnapshots(staleIndexStore{})

	// Recovery must trust Load, not a racy existence pre-check
	if _, err := manager.Get("vanished"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CleanupDuringGameplay(t *testing.T) {
	manager := NewManager()
	sess, _ := manager.Create(newTestGame(t, "cleanup-live"))

	// Cleanup reads the access timestamp while Do writes it; both must go
	// through the session lock so the race detector stays quiet.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				sess.Do(func(g *engine.Game) error { return nil })
			}
		}
	}()

	for i := 0; i < 100; i++ {
		manager.CleanupExpired(time.Hour)
	}
	close(stop)
	wg.Wait()

	if _, err := manager.Get("cleanup-live"); err != nil {
		t.Errorf("Expected the active session to survive cleanup, got %v", err)
	}
	if sess.LastAccessed().IsZero() {
		t.Error("Expected a recorded access time")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := manager.Create(newTestGame(t, fmt.Sprintf("concurrent-%d", n)))
			if err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	if manager.Count() != 100 {
		t.Errorf("Expected 100 sessions, got %d", manager.Count())
	}
}

func TestSession_DoSerializes(t *testing.T) {
	manager := NewManager()
	sess, _ := manager.Create(newTestGame(t, "serial-test"))

	// Hammer the same session from many goroutines; the per-session lock
	// must serialize every mutation, so the counter ends up exact.
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Do(func(g *engine.Game) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("Expected %d serialized mutations, got %d", workers, counter)
	}
}

func TestSession_FinalizeOnce(t *testing.T) {
	manager := NewManager()
	sess, _ := manager.Create(newTestGame(t, "finalize-test"))

	runs := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Finalize(func(g *engine.Game) {
				mu.Lock()
				runs++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	if runs != 1 {
		t.Errorf("Expected finalize to run exactly once, ran %d times", runs)
	}
	if sess.Finalize(func(g *engine.Game) {}) {
		t.Error("Expected later finalize calls to report false")
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()

	s1, _ := manager.Create(newTestGame(t, "iso-1"))
	s2, _ := manager.Create(newTestGame(t, "iso-2"))

	s1.Do(func(g *engine.Game) error {
		_, err := g.Flip("p1", 0)
		return err
	})

	if snap := s2.Snapshot(); len(snap.PendingFlips) != 0 {
		t.Error("Sessions should have independent game state")
	}
	if snap := s1.Snapshot(); len(snap.PendingFlips) != 1 {
		t.Error("Expected the flip to land on session iso-1")
	}
}
