package engine

import "time"

// Status represents the lifecycle phase of a game session
type Status string

const (
	StatusWaitingForPlayers Status = "waitingForPlayers"
	StatusInProgress        Status = "inProgress"
	StatusFinished          Status = "finished"

	// Validation constants
	MinMediaItems     = 2
	MaxPlayers        = 2
	DefaultMediaCount = 8
)

// MediaItem identifies one media asset a card pair is built from
type MediaItem struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Card represents a single card in the deck. Index and the media fields are
// immutable once the deck is built; FaceUp and Matched are the only fields
// that change during play.
type Card struct {
	Index     int    `json:"index"`
	MediaID   string `json:"media_id"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
	FaceUp    bool   `json:"face_up"`
	Matched   bool   `json:"matched"`
}

// Player represents one participant of a session. Score only increases.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Connected   bool   `json:"connected"`
}

// Game is the aggregate root for one session
type Game struct {
	SessionID    string             `json:"session_id"`
	Deck         []Card             `json:"deck"`
	Players      map[string]*Player `json:"players"`
	TurnOrder    []string           `json:"turn_order"` // join order, drives turn rotation
	TurnPlayerID string             `json:"turn_player_id"`
	PendingFlips []int              `json:"pending_flips"`
	Status       Status             `json:"status"`
	Winners      []string           `json:"winners,omitempty"`
	IsDraw       bool               `json:"is_draw"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// FlipResult describes the outcome of a single Flip call
type FlipResult struct {
	AwaitingSecondFlip bool `json:"awaiting_second_flip"`
	Match              bool `json:"match"`
	GameOver           bool `json:"game_over"`

	// ScheduleUnflip instructs the caller to invoke ResolveMismatch with
	// the indices below after the unflip delay. The engine never sleeps.
	ScheduleUnflip   bool   `json:"schedule_unflip"`
	FirstIndex       int    `json:"first_index"`
	SecondIndex      int    `json:"second_index"`
	NextTurnPlayerID string `json:"next_turn_player_id,omitempty"`
}
