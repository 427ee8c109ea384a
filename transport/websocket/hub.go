package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Message is the outgoing wire format
type Message struct {
	SessionID string       `json:"session_id"`
	Event     string       `json:"event"`
	State     *engine.Game `json:"state,omitempty"`
	Data      any          `json:"data,omitempty"`
}

// ErrorPayload accompanies sessionError messages
type ErrorPayload struct {
	Message string `json:"message"`
}

type subscription struct {
	client *Client
	// previous room, empty when the client had none
	old       string
	sessionID string
}

// Hub maintains the set of active clients and routes messages to the
// clients subscribed to each session. It implements service.Broadcaster.
type Hub struct {
	service service.GameService

	// Clients per session ID, owned by the run loop but read under mu by
	// direct senders
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	subscribe  chan *subscription
	unregister chan *Client
}

// NewHub creates a hub. SetService must be called before Run.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		subscribe:  make(chan *subscription),
		unregister: make(chan *Client),
	}
}

// SetService wires the game service in. The hub and service reference each
// other, so one of the two has to be attached after construction.
func (h *Hub) SetService(svc service.GameService) {
	h.service = svc
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case sub := <-h.subscribe:
			h.subscribeClient(sub)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection. Optional
// session_id and player_id query parameters resume an existing session
// immediately; otherwise the client subscribes through its first action.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: r.URL.Query().Get("session_id"),
		playerID:  r.URL.Query().Get("player_id"),
	}
	// Enqueue the reconnect snapshot before the client is registered and
	// the pumps start: nothing can close the send channel yet, so the
	// enqueue cannot race an unregister triggered by a dropped connection.
	if client.sessionID != "" && client.playerID != "" {
		if state, err := h.service.ReconnectSession(context.Background(), client.sessionID, client.playerID); err == nil {
			client.sendMessage(&Message{SessionID: client.sessionID, Event: service.EventStateUpdated, State: state})
		} else {
			client.sendError(client.sessionID, err)
		}
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastState sends a state update to every client in the session
func (h *Hub) BroadcastState(sessionID string, state *engine.Game) {
	h.broadcast <- &Message{SessionID: sessionID, Event: service.EventStateUpdated, State: state}
}

// BroadcastEvent sends a named event to every client in the session
func (h *Hub) BroadcastEvent(sessionID, event string, payload any) {
	h.broadcast <- &Message{SessionID: sessionID, Event: event, Data: payload}
}

// ClientCount returns the number of clients subscribed to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) addClient(client *Client) {
	if client.sessionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
}

// subscribeClient moves a client into a session room, leaving any previous one
func (h *Hub) subscribeClient(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.sessions[sub.old]; ok {
		delete(old, sub.client)
		if len(old) == 0 {
			delete(h.sessions, sub.old)
		}
	}

	if h.sessions[sub.sessionID] == nil {
		h.sessions[sub.sessionID] = make(map[*Client]bool)
	}
	h.sessions[sub.sessionID][sub.client] = true

	log.Printf("Client subscribed to session %s (total clients: %d)",
		sub.sessionID, len(h.sessions[sub.sessionID]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}
			log.Printf("Client left session %s (remaining clients: %d)",
				client.sessionID, len(clients))
		}
	}
	close(client.send)
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[message.SessionID]))
	for client := range h.sessions[message.SessionID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop the message rather than stall the hub
			log.Printf("Dropping message for slow client in session %s", message.SessionID)
		}
	}
}
