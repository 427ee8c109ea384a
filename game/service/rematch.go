package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// DefaultRematchWindow is how long a rematch request stays open before it is
// treated as declined
const DefaultRematchWindow = 30 * time.Second

type pendingRematch struct {
	requestedBy string
	requestedAt time.Time
	timer       *time.Timer
}

// rematchNegotiator tracks at most one open rematch request per finished
// session. Expiry timers carry the entry they were armed for; an entry
// replaced or removed before the timer fires makes the timer a no-op.
type rematchNegotiator struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pendingRematch
}

func newRematchNegotiator(window time.Duration) *rematchNegotiator {
	if window <= 0 {
		window = DefaultRematchWindow
	}
	return &rematchNegotiator{
		window:  window,
		pending: make(map[string]*pendingRematch),
	}
}

// RequestRematch opens a rematch request on a finished session. A repeated
// request by the same player is a no-op; a request by the other player while
// one is open counts as acceptance.
func (s *gameService) RequestRematch(ctx context.Context, sessionID, playerID string) error {
	snap, err := s.finishedSessionFor(sessionID, playerID)
	if err != nil {
		return err
	}

	s.rematch.mu.Lock()
	if p, exists := s.rematch.pending[sessionID]; exists {
		if p.requestedBy == playerID {
			s.rematch.mu.Unlock()
			return nil
		}
		p.timer.Stop()
		delete(s.rematch.pending, sessionID)
		s.rematch.mu.Unlock()
		return s.startRematch(ctx, sessionID, snap, p.requestedBy)
	}

	entry := &pendingRematch{requestedBy: playerID, requestedAt: time.Now()}
	entry.timer = time.AfterFunc(s.rematch.window, func() {
		s.expireRematch(sessionID, entry)
	})
	s.rematch.pending[sessionID] = entry
	s.rematch.mu.Unlock()

	s.broadcaster.BroadcastEvent(sessionID, EventRematchRequested, RematchRequestedPayload{
		SessionID: sessionID,
		PlayerID:  playerID,
		ExpiresAt: entry.requestedAt.Add(s.rematch.window),
	})
	return nil
}

// AcceptRematch closes the open request and starts the new session. Only the
// player who did not make the request can accept it.
func (s *gameService) AcceptRematch(ctx context.Context, sessionID, playerID string) error {
	snap, err := s.finishedSessionFor(sessionID, playerID)
	if err != nil {
		return err
	}

	s.rematch.mu.Lock()
	p, exists := s.rematch.pending[sessionID]
	if !exists || p.requestedBy == playerID {
		s.rematch.mu.Unlock()
		return ErrNoRematchPending
	}
	p.timer.Stop()
	delete(s.rematch.pending, sessionID)
	s.rematch.mu.Unlock()

	return s.startRematch(ctx, sessionID, snap, p.requestedBy)
}

// DeclineRematch withdraws or rejects the open request. Declining when no
// request is open is harmless.
func (s *gameService) DeclineRematch(ctx context.Context, sessionID, playerID string) error {
	if _, err := s.finishedSessionFor(sessionID, playerID); err != nil {
		return err
	}

	s.rematch.mu.Lock()
	p, exists := s.rematch.pending[sessionID]
	if !exists {
		s.rematch.mu.Unlock()
		return nil
	}
	p.timer.Stop()
	delete(s.rematch.pending, sessionID)
	s.rematch.mu.Unlock()

	s.broadcaster.BroadcastEvent(sessionID, EventRematchDeclined, RematchDeclinedPayload{
		SessionID: sessionID,
		PlayerID:  playerID,
	})
	return nil
}

// expireRematch fires when the window runs out. The entry identity check
// keeps a stale timer from declining a request that was already accepted or
// replaced.
func (s *gameService) expireRematch(sessionID string, entry *pendingRematch) {
	s.rematch.mu.Lock()
	current, exists := s.rematch.pending[sessionID]
	if !exists || current != entry {
		s.rematch.mu.Unlock()
		return
	}
	delete(s.rematch.pending, sessionID)
	s.rematch.mu.Unlock()

	s.broadcaster.BroadcastEvent(sessionID, EventRematchDeclined, RematchDeclinedPayload{
		SessionID: sessionID,
		Expired:   true,
	})
}

// startRematch creates a fresh session for the same two players with a new
// deck and zeroed scores. The requester is the creator of the new session.
func (s *gameService) startRematch(ctx context.Context, oldSessionID string, snap *engine.Game, requesterID string) error {
	requester, ok := snap.Players[requesterID]
	if !ok {
		return ErrNoRematchPending
	}

	mediaSet, err := s.media.FetchRandomMediaSet(ctx, s.mediaType, s.mediaCount)
	if err != nil {
		return fmt.Errorf("failed to fetch media set for rematch: %w", err)
	}

	newID := uuid.NewString()
	game, err := engine.NewGame(newID, engine.Player{ID: requester.ID, DisplayName: requester.DisplayName}, mediaSet, nil)
	if err != nil {
		return err
	}
	for _, id := range snap.TurnOrder {
		if id == requesterID {
			continue
		}
		if p, ok := snap.Players[id]; ok {
			if err := game.Join(engine.Player{ID: p.ID, DisplayName: p.DisplayName}); err != nil {
				return err
			}
		}
	}

	sess, err := s.sessions.Create(game)
	if err != nil {
		return err
	}

	newSnap := sess.Snapshot()
	s.broadcaster.BroadcastEvent(oldSessionID, EventRematchStarted, RematchStartedPayload{
		SessionID:    oldSessionID,
		NewSessionID: newID,
		State:        newSnap,
	})
	s.persistSnapshot(newID)
	return nil
}

// finishedSessionFor loads the session and checks the caller is a participant
// and the game is over, the preconditions shared by all rematch operations
func (s *gameService) finishedSessionFor(sessionID, playerID string) (*engine.Game, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	if !snap.HasPlayer(playerID) {
		return nil, engine.ErrUnknownPlayer
	}
	if snap.Status != engine.StatusFinished {
		return nil, ErrGameNotFinished
	}
	return snap, nil
}
