package service

import (
	"context"
	"errors"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

var (
	ErrNotAuthorized    = errors.New("player is not a participant of this session")
	ErrSessionFinished  = errors.New("finished sessions cannot be deleted")
	ErrGameNotFinished  = errors.New("rematch is only available once the game is finished")
	ErrNoRematchPending = errors.New("no rematch request is pending for this session")
)

// Event names pushed to subscribers of a session
const (
	EventSessionCreated   = "sessionCreated"
	EventStateUpdated     = "stateUpdated"
	EventSessionError     = "sessionError"
	EventGameOver         = "gameOver"
	EventRematchRequested = "rematchRequested"
	EventRematchStarted   = "rematchStarted"
	EventRematchDeclined  = "rematchDeclined"
)

// Broadcaster delivers state updates and events to everyone subscribed to a
// session. Implementations must not block gameplay; slow consumers are the
// transport's problem.
type Broadcaster interface {
	BroadcastState(sessionID string, state *engine.Game)
	BroadcastEvent(sessionID, event string, payload any)
}

// MediaProvider supplies the media sets new decks are built from
type MediaProvider interface {
	FetchRandomMediaSet(ctx context.Context, mediaType string, count int) ([]engine.MediaItem, error)
}

// Outcome is the durable record of a finished session
type Outcome struct {
	SessionID  string         `json:"session_id"`
	FinishedAt time.Time      `json:"finished_at"`
	Winners    []string       `json:"winners"`
	IsDraw     bool           `json:"is_draw"`
	Scores     map[string]int `json:"scores"`
	State      *engine.Game   `json:"state"`
}

// GameStore records finished games and per-player statistics
type GameStore interface {
	FinalizeSession(ctx context.Context, outcome Outcome) error
	// UpdatePersonalBest records score for the player if it beats their
	// stored best. Reports whether the best improved.
	UpdatePersonalBest(ctx context.Context, playerID string, score int) (bool, error)
}

// SessionInfo is the listing view of a session
type SessionInfo struct {
	ID             string        `json:"id"`
	Status         engine.Status `json:"status"`
	PlayerCount    int           `json:"player_count"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}

// GameOverPayload accompanies the gameOver event
type GameOverPayload struct {
	SessionID   string         `json:"session_id"`
	Winners     []string       `json:"winners"`
	IsDraw      bool           `json:"is_draw"`
	FinalScores map[string]int `json:"final_scores"`
}

// RematchRequestedPayload accompanies the rematchRequested event
type RematchRequestedPayload struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RematchStartedPayload accompanies the rematchStarted event, broadcast on
// the old session so both players learn the new session ID
type RematchStartedPayload struct {
	SessionID    string       `json:"session_id"`
	NewSessionID string       `json:"new_session_id"`
	State        *engine.Game `json:"state"`
}

// RematchDeclinedPayload accompanies the rematchDeclined event. Expired is
// set when the window ran out rather than a player declining.
type RematchDeclinedPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id,omitempty"`
	Expired   bool   `json:"expired"`
}
