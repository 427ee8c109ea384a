package service

import "github.com/Jerem-14/jeu-react-backend/game/engine"

// MultiBroadcaster fans every update out to all targets in order. Lets the
// websocket hub and a message broker mirror the same traffic.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) BroadcastState(sessionID string, state *engine.Game) {
	for _, b := range m {
		b.BroadcastState(sessionID, state)
	}
}

func (m MultiBroadcaster) BroadcastEvent(sessionID, event string, payload any) {
	for _, b := range m {
		b.BroadcastEvent(sessionID, event, payload)
	}
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastState(string, *engine.Game) {}

func (nopBroadcaster) BroadcastEvent(string, string, any) {}
