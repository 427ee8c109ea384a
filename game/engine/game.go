package engine

import (
	"math/rand"
	"time"
)

// NewGame builds the deck and creates a session in waitingForPlayers status
// with the creator as the sole player and turn owner.
func NewGame(sessionID string, creator Player, media []MediaItem, rng *rand.Rand) (*Game, error) {
	deck, err := BuildDeck(media, rng)
	if err != nil {
		return nil, err
	}

	creator.Score = 0
	creator.Connected = true

	return &Game{
		SessionID:    sessionID,
		Deck:         deck,
		Players:      map[string]*Player{creator.ID: &creator},
		TurnOrder:    []string{creator.ID},
		TurnPlayerID: creator.ID,
		Status:       StatusWaitingForPlayers,
		LastUpdated:  time.Now(),
	}, nil
}

// Join adds the second player and moves the session to inProgress. Joining
// never changes the turn owner. A player already in the session is marked
// connected instead, so a rejoin is harmless.
func (g *Game) Join(p Player) error {
	if existing, ok := g.Players[p.ID]; ok {
		existing.Connected = true
		g.touch()
		return nil
	}
	if len(g.Players) >= MaxPlayers {
		return ErrSessionFull
	}

	p.Score = 0
	p.Connected = true
	g.Players[p.ID] = &p
	g.TurnOrder = append(g.TurnOrder, p.ID)
	g.Status = StatusInProgress
	g.touch()
	return nil
}

// Flip turns a card face-up for the given player and resolves the pair when
// it is the second flip of the turn. On a mismatch the cards stay face-up and
// the result carries a schedule-unflip instruction; the caller must invoke
// ResolveMismatch after the unflip delay. Illegal flips never mutate state.
func (g *Game) Flip(playerID string, cardIndex int) (*FlipResult, error) {
	if playerID != g.TurnPlayerID {
		return nil, ErrNotYourTurn
	}
	if cardIndex < 0 || cardIndex >= len(g.Deck) {
		return nil, ErrInvalidCard
	}
	// Two pending flips mean a mismatch is awaiting its scheduled
	// resolution; no further flips are legal until it lands.
	if len(g.PendingFlips) >= 2 {
		return nil, ErrInvalidCard
	}

	card := &g.Deck[cardIndex]
	if card.FaceUp || card.Matched {
		return nil, ErrInvalidCard
	}

	card.FaceUp = true
	g.PendingFlips = append(g.PendingFlips, cardIndex)
	g.touch()

	if len(g.PendingFlips) < 2 {
		return &FlipResult{AwaitingSecondFlip: true}, nil
	}

	first := &g.Deck[g.PendingFlips[0]]
	if first.MediaID == card.MediaID {
		first.Matched = true
		card.Matched = true
		g.Players[playerID].Score++
		g.PendingFlips = nil

		result := &FlipResult{Match: true}
		if g.allMatched() {
			g.finish()
			result.GameOver = true
		}
		return result, nil
	}

	return &FlipResult{
		ScheduleUnflip:   true,
		FirstIndex:       g.PendingFlips[0],
		SecondIndex:      cardIndex,
		NextTurnPlayerID: g.nextPlayer(playerID),
	}, nil
}

// ResolveMismatch flips both cards of a mismatched pair face-down, clears the
// pending flips, and passes the turn. It re-validates that the session is
// still in the state the mismatch was observed in; if a faster action or a
// recovery has moved the state on, it reports false and changes nothing.
func (g *Game) ResolveMismatch(first, second int, nextTurnPlayerID string) bool {
	if len(g.PendingFlips) != 2 || g.PendingFlips[0] != first || g.PendingFlips[1] != second {
		return false
	}
	if first < 0 || first >= len(g.Deck) || second < 0 || second >= len(g.Deck) {
		return false
	}

	a, b := &g.Deck[first], &g.Deck[second]
	if a.Matched || b.Matched || !a.FaceUp || !b.FaceUp {
		return false
	}

	a.FaceUp = false
	b.FaceUp = false
	g.PendingFlips = nil
	if _, ok := g.Players[nextTurnPlayerID]; ok {
		g.TurnPlayerID = nextTurnPlayerID
	}
	g.touch()
	return true
}

// SetConnected updates a player's liveness marker. Disconnection does not
// forfeit; the session stays resumable.
func (g *Game) SetConnected(playerID string, connected bool) bool {
	p, ok := g.Players[playerID]
	if !ok {
		return false
	}
	p.Connected = connected
	g.touch()
	return true
}

// HasPlayer reports whether the given id is a participant of this session
func (g *Game) HasPlayer(playerID string) bool {
	_, ok := g.Players[playerID]
	return ok
}

// Snapshot returns a deep copy safe to hand to broadcasters and persistence.
// Consumers must route mutations back through the state machine.
func (g *Game) Snapshot() *Game {
	cp := *g

	cp.Deck = make([]Card, len(g.Deck))
	copy(cp.Deck, g.Deck)

	cp.Players = make(map[string]*Player, len(g.Players))
	for id, p := range g.Players {
		player := *p
		cp.Players[id] = &player
	}

	cp.TurnOrder = append([]string(nil), g.TurnOrder...)
	cp.PendingFlips = append([]int(nil), g.PendingFlips...)
	cp.Winners = append([]string(nil), g.Winners...)

	return &cp
}

// nextPlayer returns the participant after the given one in join order
func (g *Game) nextPlayer(playerID string) string {
	for i, id := range g.TurnOrder {
		if id == playerID {
			return g.TurnOrder[(i+1)%len(g.TurnOrder)]
		}
	}
	return playerID
}

func (g *Game) allMatched() bool {
	for i := range g.Deck {
		if !g.Deck[i].Matched {
			return false
		}
	}
	return true
}

// finish moves the session to finished and computes the winners: every
// player whose score equals the maximum. Ties produce a draw.
func (g *Game) finish() {
	g.Status = StatusFinished

	max := -1
	for _, p := range g.Players {
		if p.Score > max {
			max = p.Score
		}
	}

	g.Winners = g.Winners[:0]
	for _, id := range g.TurnOrder {
		if p, ok := g.Players[id]; ok && p.Score == max {
			g.Winners = append(g.Winners, id)
		}
	}
	g.IsDraw = len(g.Winners) > 1
}

func (g *Game) touch() {
	g.LastUpdated = time.Now()
}
