// Package broker mirrors session traffic onto a NATS broker so other
// services (matchmaking, analytics, bots) can follow games without holding a
// WebSocket. Publishing is one-way; the game never consumes broker messages.
package broker

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

// SubjectPrefix namespaces all published subjects. State updates go to
// game.session.<id>.state, events to game.session.<id>.event.<name>.
const SubjectPrefix = "game.session"

// Publisher implements service.Broadcaster over a NATS connection
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the broker and returns a publisher. The connection retries
// on its own; a broker outage degrades mirroring, not gameplay.
func Connect(url string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("memory-game-server"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// NewPublisher wraps an existing connection
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

type stateMessage struct {
	SessionID string       `json:"session_id"`
	State     *engine.Game `json:"state"`
}

type eventMessage struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
}

// BroadcastState publishes the full session state
func (p *Publisher) BroadcastState(sessionID string, state *engine.Game) {
	p.publish(
		fmt.Sprintf("%s.%s.state", SubjectPrefix, sessionID),
		stateMessage{SessionID: sessionID, State: state},
	)
}

// BroadcastEvent publishes a named session event
func (p *Publisher) BroadcastEvent(sessionID, event string, payload any) {
	p.publish(
		fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, sessionID, event),
		eventMessage{SessionID: sessionID, Event: event, Data: payload},
	)
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Warning: Failed to marshal broker message for %s: %v", subject, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("Warning: Failed to publish to %s: %v", subject, err)
	}
}

// Close flushes and closes the connection
func (p *Publisher) Close() {
	if err := p.nc.Flush(); err != nil {
		log.Printf("Warning: Failed to flush broker connection: %v", err)
	}
	p.nc.Close()
}
