package engine

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrInsufficientMedia = errors.New("at least two media items are required to build a deck")
	ErrSessionFull       = errors.New("session already has two players")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidCard       = errors.New("invalid card")
	ErrUnknownPlayer     = errors.New("player is not part of this session")
)

// BuildDeck produces a shuffled deck of 2*len(media) face-down cards, two per
// media item. The rng parameter makes the shuffle deterministic for tests;
// pass nil to seed from the clock.
func BuildDeck(media []MediaItem, rng *rand.Rand) ([]Card, error) {
	if len(media) < MinMediaItems {
		return nil, ErrInsufficientMedia
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	cards := make([]Card, 0, len(media)*2)
	for i := 0; i < 2; i++ {
		for _, item := range media {
			cards = append(cards, Card{
				MediaID:   item.ID,
				MediaURL:  item.URL,
				MediaType: item.Type,
			})
		}
	}

	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	// Index reflects the final position in the deck, which is what clients
	// reference in flip actions.
	for i := range cards {
		cards[i].Index = i
	}

	return cards, nil
}
