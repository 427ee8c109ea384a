// Package media supplies the media sets decks are built from. The real
// deployment reads media rows from the database; the static provider here
// backs development setups and tests.
package media

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// StaticProvider serves random media sets from a fixed in-process list
type StaticProvider struct {
	items []engine.MediaItem
	rng   *rand.Rand
	mu    sync.Mutex
}

// NewStaticProvider creates a provider over the given items. Pass a seeded
// rng for deterministic tests; nil seeds from the clock.
func NewStaticProvider(items []engine.MediaItem, rng *rand.Rand) *StaticProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StaticProvider{items: items, rng: rng}
}

// FetchRandomMediaSet returns count random items of the given media type
func (p *StaticProvider) FetchRandomMediaSet(ctx context.Context, mediaType string, count int) ([]engine.MediaItem, error) {
	matching := make([]engine.MediaItem, 0, len(p.items))
	for _, item := range p.items {
		if mediaType == "" || item.Type == mediaType {
			matching = append(matching, item)
		}
	}

	if len(matching) < count {
		return nil, fmt.Errorf("requested %d media items of type %q, only %d available", count, mediaType, len(matching))
	}

	p.mu.Lock()
	p.rng.Shuffle(len(matching), func(i, j int) {
		matching[i], matching[j] = matching[j], matching[i]
	})
	p.mu.Unlock()

	return matching[:count], nil
}

// DefaultImageSet returns the built-in development media set
func DefaultImageSet() []engine.MediaItem {
	items := make([]engine.MediaItem, 0, 8)
	for i := 1; i <= 8; i++ {
		items = append(items, engine.MediaItem{
			ID:   fmt.Sprintf("builtin-%d", i),
			URL:  fmt.Sprintf("https://picsum.photos/seed/memory-%d/300/300", i),
			Type: "image",
		})
	}
	return items
}
