package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/session"
)

const (
	// DefaultUnflipDelay is how long a mismatched pair stays face-up before
	// the scheduled unflip lands and the turn passes.
	DefaultUnflipDelay = 1 * time.Second

	// DefaultMediaType selects which media rows decks are built from
	DefaultMediaType = "image"

	finalizeTimeout = 10 * time.Second
)

// GameService exposes all game operations to the transports
type GameService interface {
	CreateSession(ctx context.Context, sessionID string, creator engine.Player) (*engine.Game, error)
	JoinSession(ctx context.Context, sessionID string, player engine.Player) (*engine.Game, error)
	ReconnectSession(ctx context.Context, sessionID, playerID string) (*engine.Game, error)
	FlipCard(ctx context.Context, sessionID, playerID string, cardIndex int) (*engine.FlipResult, error)
	RequestRematch(ctx context.Context, sessionID, playerID string) error
	AcceptRematch(ctx context.Context, sessionID, playerID string) error
	DeclineRematch(ctx context.Context, sessionID, playerID string) error
	DeleteSession(ctx context.Context, sessionID, playerID string) error
	DisconnectPlayer(sessionID, playerID string)
	GetState(ctx context.Context, sessionID string) (*engine.Game, error)
	ListSessions(ctx context.Context) []SessionInfo
}

type gameService struct {
	sessions    *session.Manager
	media       MediaProvider
	store       GameStore
	broadcaster Broadcaster
	rematch     *rematchNegotiator

	unflipDelay time.Duration
	mediaType   string
	mediaCount  int
}

// NewGameService creates a game service with production timings. store and
// broadcaster may be nil; the service then skips durable records and fans
// out to nobody.
func NewGameService(sessions *session.Manager, media MediaProvider, store GameStore, broadcaster Broadcaster) GameService {
	return NewGameServiceWithTimings(sessions, media, store, broadcaster, DefaultUnflipDelay, DefaultRematchWindow)
}

// NewGameServiceWithTimings creates a game service with explicit unflip delay
// and rematch window, mainly so tests do not have to wait out real timers
func NewGameServiceWithTimings(sessions *session.Manager, media MediaProvider, store GameStore, broadcaster Broadcaster, unflipDelay, rematchWindow time.Duration) GameService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if unflipDelay <= 0 {
		unflipDelay = DefaultUnflipDelay
	}
	return &gameService{
		sessions:    sessions,
		media:       media,
		store:       store,
		broadcaster: broadcaster,
		rematch:     newRematchNegotiator(rematchWindow),
		unflipDelay: unflipDelay,
		mediaType:   DefaultMediaType,
		mediaCount:  engine.DefaultMediaCount,
	}
}

// CreateSession builds a fresh deck and registers a new session. An empty
// sessionID gets a generated UUID.
func (s *gameService) CreateSession(ctx context.Context, sessionID string, creator engine.Player) (*engine.Game, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	mediaSet, err := s.media.FetchRandomMediaSet(ctx, s.mediaType, s.mediaCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media set: %w", err)
	}

	game, err := engine.NewGame(sessionID, creator, mediaSet, nil)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(game)
	if err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	s.broadcaster.BroadcastEvent(sessionID, EventSessionCreated, snap)
	s.persistSnapshot(sessionID)
	return snap, nil
}

// JoinSession adds a second player and starts the game
func (s *gameService) JoinSession(ctx context.Context, sessionID string, player engine.Player) (*engine.Game, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Do(func(g *engine.Game) error {
		return g.Join(player)
	}); err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	s.broadcaster.BroadcastState(sessionID, snap)
	s.persistSnapshot(sessionID)
	return snap, nil
}

// ReconnectSession marks a returning participant connected and hands back the
// current state. Works against recovered sessions too: the manager reloads
// evicted sessions from the snapshot store transparently.
func (s *gameService) ReconnectSession(ctx context.Context, sessionID, playerID string) (*engine.Game, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Do(func(g *engine.Game) error {
		if !g.SetConnected(playerID, true) {
			return engine.ErrUnknownPlayer
		}
		return nil
	}); err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	s.broadcaster.BroadcastState(sessionID, snap)
	return snap, nil
}

// FlipCard runs one flip through the state machine, broadcasts the result,
// and schedules the delayed unflip on a mismatch
func (s *gameService) FlipCard(ctx context.Context, sessionID, playerID string, cardIndex int) (*engine.FlipResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var result *engine.FlipResult
	if err := sess.Do(func(g *engine.Game) error {
		r, err := g.Flip(playerID, cardIndex)
		if err != nil {
			return err
		}
		result = r
		return nil
	}); err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	s.broadcaster.BroadcastState(sessionID, snap)

	if result.ScheduleUnflip {
		s.scheduleUnflip(sessionID, result)
	}
	if result.GameOver {
		s.handleGameOver(sessionID, sess, snap)
	}

	s.persistSnapshot(sessionID)
	return result, nil
}

// DisconnectPlayer marks a participant disconnected, typically when their
// websocket drops. Never forfeits the session.
func (s *gameService) DisconnectPlayer(sessionID, playerID string) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return
	}

	changed := false
	sess.Do(func(g *engine.Game) error {
		changed = g.SetConnected(playerID, false)
		return nil
	})
	if changed {
		s.broadcaster.BroadcastState(sessionID, sess.Snapshot())
	}
}

// DeleteSession removes a session on behalf of one of its participants.
// Finished sessions are kept for their outcome and rematch window.
func (s *gameService) DeleteSession(ctx context.Context, sessionID, playerID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	if err := sess.Do(func(g *engine.Game) error {
		if !g.HasPlayer(playerID) {
			return ErrNotAuthorized
		}
		if g.Status == engine.StatusFinished {
			return ErrSessionFinished
		}
		return nil
	}); err != nil {
		return err
	}

	return s.sessions.Delete(sessionID)
}

// GetState returns a snapshot of the session
func (s *gameService) GetState(ctx context.Context, sessionID string) (*engine.Game, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// ListSessions returns a summary of every in-memory session, ordered by
// creation time
func (s *gameService) ListSessions(ctx context.Context) []SessionInfo {
	sessions := s.sessions.List()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Snapshot()
		infos = append(infos, SessionInfo{
			ID:             snap.SessionID,
			Status:         snap.Status,
			PlayerCount:    len(snap.Players),
			CreatedAt:      sess.CreatedAt,
			LastAccessedAt: sess.LastAccessed(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// scheduleUnflip arms the delayed resolution of a mismatched pair. The timer
// callback re-enters the session lock and re-validates before touching
// anything, so a session deleted or recovered in the meantime stays intact.
func (s *gameService) scheduleUnflip(sessionID string, r *engine.FlipResult) {
	first, second, next := r.FirstIndex, r.SecondIndex, r.NextTurnPlayerID
	time.AfterFunc(s.unflipDelay, func() {
		s.resolveMismatch(sessionID, first, second, next)
	})
}

func (s *gameService) resolveMismatch(sessionID string, first, second int, nextTurnPlayerID string) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		// Session gone; the scheduled step has nothing to do
		return
	}

	applied := false
	sess.Do(func(g *engine.Game) error {
		applied = g.ResolveMismatch(first, second, nextTurnPlayerID)
		return nil
	})
	if !applied {
		return
	}

	s.broadcaster.BroadcastState(sessionID, sess.Snapshot())
	s.persistSnapshot(sessionID)
}

// handleGameOver broadcasts the outcome and records it durably. The record is
// attempted at most once per session even when completion signals race.
func (s *gameService) handleGameOver(sessionID string, sess *session.Session, snap *engine.Game) {
	s.broadcaster.BroadcastEvent(sessionID, EventGameOver, GameOverPayload{
		SessionID:   sessionID,
		Winners:     snap.Winners,
		IsDraw:      snap.IsDraw,
		FinalScores: playerScores(snap),
	})

	sess.Finalize(func(final *engine.Game) {
		if s.store == nil {
			return
		}
		go s.recordOutcome(sessionID, final)
	})
}

func (s *gameService) recordOutcome(sessionID string, final *engine.Game) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	outcome := Outcome{
		SessionID:  sessionID,
		FinishedAt: time.Now(),
		Winners:    final.Winners,
		IsDraw:     final.IsDraw,
		Scores:     playerScores(final),
		State:      final,
	}
	if err := s.store.FinalizeSession(ctx, outcome); err != nil {
		log.Printf("Warning: Failed to record outcome for session %s: %v", sessionID, err)
		return
	}

	for _, id := range final.TurnOrder {
		p, ok := final.Players[id]
		if !ok {
			continue
		}
		if _, err := s.store.UpdatePersonalBest(ctx, id, p.Score); err != nil {
			log.Printf("Warning: Failed to update personal best for player %s: %v", id, err)
		}
	}
}

// persistSnapshot fires a durability write without blocking gameplay
func (s *gameService) persistSnapshot(sessionID string) {
	go func() {
		if err := s.sessions.SaveSnapshot(sessionID); err != nil && err != session.ErrSessionNotFound {
			log.Printf("Warning: Failed to persist session %s: %v", sessionID, err)
		}
	}()
}

func playerScores(g *engine.Game) map[string]int {
	scores := make(map[string]int, len(g.Players))
	for id, p := range g.Players {
		scores[id] = p.Score
	}
	return scores
}
