// Package websocket is the real-time transport of the memory game.
//
// A central Hub tracks which clients are subscribed to which session and
// fans state updates and events out to them. Each connection runs a read
// pump and a write pump; inbound messages are JSON actions that map onto
// game service calls.
//
// Message Protocol:
//
// Incoming actions carry an action name plus the fields it needs:
//
//	{"action": "flipCard", "session_id": "abc", "player_id": "p1", "card_index": 3}
//
// Outgoing messages carry the session, an event name, and either the full
// game state or an event payload:
//
//	{"session_id": "abc", "event": "stateUpdated", "state": {...}}
//
// Errors caused by a client's own action go back to that client only as a
// sessionError event; everything else is broadcast to the whole session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	svc := service.NewGameService(manager, provider, store, hub)
//	hub.SetService(svc)
//	go hub.Run()
//	http.HandleFunc("/ws", hub.ServeWS)
package websocket
