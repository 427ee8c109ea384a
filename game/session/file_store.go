package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// FileStore implements SnapshotStore using file system storage, one JSON
// file per session
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based snapshot store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save persists a session snapshot to a JSON file
func (fs *FileStore) Save(id string, state *engine.Game) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	data := PersistedSession{
		ID:      id,
		SavedAt: time.Now(),
		State:   state,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := os.WriteFile(fs.filePath(id), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}

// Load retrieves a session snapshot from its JSON file
func (fs *FileStore) Load(id string) (*engine.Game, error) {
	jsonData, err := os.ReadFile(fs.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var data PersistedSession
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	if data.State == nil {
		return nil, fmt.Errorf("snapshot for %s contains no state", id)
	}

	return data.State, nil
}

// Delete removes a snapshot file
func (fs *FileStore) Delete(id string) error {
	if !fs.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fs.filePath(id)); err != nil {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	return nil
}

// ListAll returns all persisted session IDs
func (fs *FileStore) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

// Exists checks if a snapshot file exists
func (fs *FileStore) Exists(id string) bool {
	_, err := os.Stat(fs.filePath(id))
	return err == nil
}

func (fs *FileStore) filePath(id string) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s.json", id))
}
