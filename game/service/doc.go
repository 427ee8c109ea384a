// Package service is the application layer of the memory game. It sits
// between the transports (websocket, HTTP, MCP, broker) and the pure engine:
// it owns the side effects the engine refuses to have. That means scheduling
// the delayed unflip after a mismatch, broadcasting state to subscribers,
// firing persistence writes, recording final outcomes exactly once, and
// running the rematch handshake with its expiry window.
//
// Transports translate their wire formats into service calls and report the
// returned errors back to the caller only; all state fan-out happens through
// the Broadcaster.
package service
