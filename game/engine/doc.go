// Package engine provides the core game logic for the memory card game.
//
// The engine package implements the session state machine including:
//   - Deck building from a media set (doubled pairs, unbiased shuffle)
//   - Turn validation and card flip resolution
//   - Match detection, scoring, and game-over evaluation
//   - Deferred mismatch resolution (the "flip back" step)
//
// Core Types:
//
// Game is the aggregate root for a single session: the deck, the players,
// the turn owner, and the flips awaiting resolution. FlipResult describes
// the outcome of a flip, including the schedule-unflip instruction the
// caller must honor after a mismatch.
//
// Usage:
//
//	game, err := engine.NewGame(sessionID, creator, media, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := game.Join(opponent); err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := game.Flip(playerID, 3)
//
// A Game is not safe for concurrent use. Callers are expected to serialize
// access per session; see the session package.
package engine
