// Package postgres persists game outcomes, player statistics, media assets,
// and session snapshots in PostgreSQL via GORM. One Store serves three roles:
// it is the service's GameStore, its MediaProvider, and the session manager's
// SnapshotStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/service"
	"github.com/Jerem-14/jeu-react-backend/game/session"
)

// Store wraps the database handle
type Store struct {
	db *gorm.DB
}

// Open connects to the database and runs the schema migrations
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&GameRecord{},
		&PlayerStats{},
		&MediaRecord{},
		&SessionSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle without migrating
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FinalizeSession records the outcome of a finished session. Writing the same
// session twice is a no-op, so a replayed finalize cannot duplicate records.
func (s *Store) FinalizeSession(ctx context.Context, outcome service.Outcome) error {
	winners, err := json.Marshal(outcome.Winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}
	scores, err := json.Marshal(outcome.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	state, err := json.Marshal(outcome.State)
	if err != nil {
		return fmt.Errorf("failed to marshal final state: %w", err)
	}

	record := GameRecord{
		SessionID:  outcome.SessionID,
		FinishedAt: outcome.FinishedAt,
		IsDraw:     outcome.IsDraw,
		Winners:    winners,
		Scores:     scores,
		FinalState: state,
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(&record).Error
}

// UpdatePersonalBest bumps the player's best score when the new one beats it
// and counts the game either way. Reports whether the best improved.
func (s *Store) UpdatePersonalBest(ctx context.Context, playerID string, score int) (bool, error) {
	improved := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stats PlayerStats
		err := tx.Where("player_id = ?", playerID).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			improved = true
			return tx.Create(&PlayerStats{
				PlayerID:    playerID,
				BestScore:   score,
				GamesPlayed: 1,
			}).Error
		}
		if err != nil {
			return err
		}

		stats.GamesPlayed++
		if score > stats.BestScore {
			stats.BestScore = score
			improved = true
		}
		return tx.Save(&stats).Error
	})

	return improved, err
}

// GetPlayerStats returns the aggregates for one player
func (s *Store) GetPlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	var stats PlayerStats
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no stats recorded for player %s", playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}
	return &stats, nil
}

// FetchRandomMediaSet returns count random media rows of the given type
func (s *Store) FetchRandomMediaSet(ctx context.Context, mediaType string, count int) ([]engine.MediaItem, error) {
	query := s.db.WithContext(ctx).Order("RANDOM()").Limit(count)
	if mediaType != "" {
		query = query.Where("type = ?", mediaType)
	}

	var records []MediaRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch media set: %w", err)
	}
	if len(records) < count {
		return nil, fmt.Errorf("requested %d media items of type %q, only %d available", count, mediaType, len(records))
	}

	items := make([]engine.MediaItem, 0, len(records))
	for _, r := range records {
		items = append(items, engine.MediaItem{ID: r.ID, URL: r.URL, Type: r.Type})
	}
	return items, nil
}

// SeedMedia inserts media rows that are not present yet, so a fresh database
// can serve decks right away
func (s *Store) SeedMedia(ctx context.Context, items []engine.MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	records := make([]MediaRecord, 0, len(items))
	for _, item := range items {
		records = append(records, MediaRecord{ID: item.ID, URL: item.URL, Type: item.Type})
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&records).Error
}

// Save upserts the latest snapshot of a session
func (s *Store) Save(id string, state *engine.Game) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	snap := SessionSnapshot{
		SessionID: id,
		SavedAt:   time.Now(),
		State:     payload,
	}
	return s.db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, UpdateAll: true}).
		Create(&snap).Error
}

// Load retrieves a session snapshot
func (s *Store) Load(id string) (*engine.Game, error) {
	var snap SessionSnapshot
	err := s.db.Where("session_id = ?", id).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var state engine.Game
	if err := json.Unmarshal(snap.State, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &state, nil
}

// Delete removes a session snapshot
func (s *Store) Delete(id string) error {
	result := s.db.Where("session_id = ?", id).Delete(&SessionSnapshot{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// ListAll returns the IDs of all persisted session snapshots
func (s *Store) ListAll() ([]string, error) {
	var ids []string
	if err := s.db.Model(&SessionSnapshot{}).Pluck("session_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list session snapshots: %w", err)
	}
	return ids, nil
}

// Exists reports whether a snapshot is stored for the session
func (s *Store) Exists(id string) bool {
	var count int64
	if err := s.db.Model(&SessionSnapshot{}).Where("session_id = ?", id).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
