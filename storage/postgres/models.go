package postgres

import (
	"encoding/json"
	"time"
)

// GameRecord is the durable outcome of one finished session
type GameRecord struct {
	SessionID  string          `json:"session_id" gorm:"primaryKey"`
	FinishedAt time.Time       `json:"finished_at" gorm:"index"`
	IsDraw     bool            `json:"is_draw"`
	Winners    json.RawMessage `json:"winners" gorm:"type:jsonb"`
	Scores     json.RawMessage `json:"scores" gorm:"type:jsonb"`
	FinalState json.RawMessage `json:"final_state" gorm:"type:jsonb"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PlayerStats tracks per-player aggregates across sessions. BestScore only
// moves up.
type PlayerStats struct {
	PlayerID    string    `json:"player_id" gorm:"primaryKey"`
	BestScore   int       `json:"best_score" gorm:"default:0"`
	GamesPlayed int       `json:"games_played" gorm:"default:0"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MediaRecord is one media asset decks can be built from
type MediaRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	URL       string    `json:"url" gorm:"not null"`
	Type      string    `json:"type" gorm:"index;default:'image'"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSnapshot holds the latest mid-game state of a session for recovery
type SessionSnapshot struct {
	SessionID string          `json:"session_id" gorm:"primaryKey"`
	SavedAt   time.Time       `json:"saved_at"`
	State     json.RawMessage `json:"state" gorm:"type:jsonb"`
}
