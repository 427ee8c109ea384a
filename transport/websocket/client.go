package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Inbound action names
const (
	ActionCreateSession    = "createSession"
	ActionJoinSession      = "joinSession"
	ActionReconnectSession = "reconnectSession"
	ActionFlipCard         = "flipCard"
	ActionRequestRematch   = "requestRematch"
	ActionAcceptRematch    = "acceptRematch"
	ActionDeclineRematch   = "declineRematch"
	ActionDeleteSession    = "deleteSession"
	ActionGetState         = "getState"
)

// Action is the incoming wire format. Action selects the operation; the
// remaining fields are read as that operation needs them.
type Action struct {
	Action      string `json:"action"`
	SessionID   string `json:"session_id,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	CardIndex   *int   `json:"card_index,omitempty"`
}

// Client is one WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Set by the connection query or the first session action. Only the
	// read pump writes these after registration.
	sessionID string
	playerID  string
}

// readPump reads actions from the connection and dispatches them. On any
// read failure the client is unregistered and its player marked disconnected.
func (c *Client) readPump() {
	defer func() {
		sessionID, playerID := c.sessionID, c.playerID
		c.hub.unregister <- c
		c.conn.Close()
		if sessionID != "" && playerID != "" {
			c.hub.service.DisconnectPlayer(sessionID, playerID)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleAction(raw)
	}
}

// handleAction maps one inbound message onto a game service call. Failures
// go back to this client only; successful mutations reach everyone through
// the service's broadcasts.
func (c *Client) handleAction(raw []byte) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		c.sendErrorMessage("", "invalid message format")
		return
	}

	ctx := context.Background()

	switch action.Action {
	case ActionCreateSession:
		state, err := c.hub.service.CreateSession(ctx, action.SessionID, engine.Player{
			ID:          action.PlayerID,
			DisplayName: action.DisplayName,
		})
		if err != nil {
			c.sendError(action.SessionID, err)
			return
		}
		c.playerID = action.PlayerID
		c.subscribeTo(state.SessionID)
		c.sendMessage(&Message{SessionID: state.SessionID, Event: service.EventStateUpdated, State: state})

	case ActionJoinSession:
		// Subscribe first so the join broadcast reaches this client too
		c.playerID = action.PlayerID
		c.subscribeTo(action.SessionID)
		if _, err := c.hub.service.JoinSession(ctx, action.SessionID, engine.Player{
			ID:          action.PlayerID,
			DisplayName: action.DisplayName,
		}); err != nil {
			c.sendError(action.SessionID, err)
		}

	case ActionReconnectSession:
		c.playerID = action.PlayerID
		c.subscribeTo(action.SessionID)
		if _, err := c.hub.service.ReconnectSession(ctx, action.SessionID, action.PlayerID); err != nil {
			c.sendError(action.SessionID, err)
		}

	case ActionFlipCard:
		if action.CardIndex == nil {
			c.sendErrorMessage(action.SessionID, "card_index is required")
			return
		}
		if _, err := c.hub.service.FlipCard(ctx, c.session(action), c.player(action), *action.CardIndex); err != nil {
			c.sendError(c.session(action), err)
		}

	case ActionRequestRematch:
		if err := c.hub.service.RequestRematch(ctx, c.session(action), c.player(action)); err != nil {
			c.sendError(c.session(action), err)
		}

	case ActionAcceptRematch:
		if err := c.hub.service.AcceptRematch(ctx, c.session(action), c.player(action)); err != nil {
			c.sendError(c.session(action), err)
		}

	case ActionDeclineRematch:
		if err := c.hub.service.DeclineRematch(ctx, c.session(action), c.player(action)); err != nil {
			c.sendError(c.session(action), err)
		}

	case ActionDeleteSession:
		if err := c.hub.service.DeleteSession(ctx, c.session(action), c.player(action)); err != nil {
			c.sendError(c.session(action), err)
		}

	case ActionGetState:
		state, err := c.hub.service.GetState(ctx, c.session(action))
		if err != nil {
			c.sendError(c.session(action), err)
			return
		}
		c.sendMessage(&Message{SessionID: state.SessionID, Event: service.EventStateUpdated, State: state})

	default:
		c.sendErrorMessage(action.SessionID, "unknown action: "+action.Action)
	}
}

// subscribeTo moves this client into a session room. Only called from the
// read pump, so the sessionID write is single-threaded.
func (c *Client) subscribeTo(sessionID string) {
	old := c.sessionID
	c.sessionID = sessionID
	c.hub.subscribe <- &subscription{client: c, old: old, sessionID: sessionID}
}

// session prefers the explicit session ID of the action over the one the
// client is subscribed to
func (c *Client) session(action Action) string {
	if action.SessionID != "" {
		return action.SessionID
	}
	return c.sessionID
}

func (c *Client) player(action Action) string {
	if action.PlayerID != "" {
		return action.PlayerID
	}
	return c.playerID
}

func (c *Client) sendError(sessionID string, err error) {
	c.sendErrorMessage(sessionID, err.Error())
}

func (c *Client) sendErrorMessage(sessionID, msg string) {
	c.sendMessage(&Message{
		SessionID: sessionID,
		Event:     service.EventSessionError,
		Data:      ErrorPayload{Message: msg},
	})
}

// sendMessage delivers a message to this client only
func (c *Client) sendMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal WebSocket message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Dropping message for slow client in session %s", message.SessionID)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
