// Package api provides the REST surface of the memory game.
//
// Endpoints:
//
//	POST   /api/sessions                – create a session as the first player
//	GET    /api/sessions                – list active sessions
//	GET    /api/sessions/{id}           – current game state
//	GET    /api/sessions/{id}/state     – alias for the state endpoint
//	POST   /api/sessions/{id}/join      – join as the second player
//	POST   /api/sessions/{id}/flip      – flip a card
//	POST   /api/sessions/{id}/rematch   – request/accept/decline a rematch
//	DELETE /api/sessions/{id}           – delete a session (participants only)
//	GET    /api/players/{id}/stats      – per-player aggregates (database only)
//	GET    /health                      – liveness probe
//	/ws                                 – WebSocket upgrade
//
// The REST API is a thin layer over the game service: handlers decode the
// request, call the service, and map errors onto status codes. Real-time
// state fan-out happens over the websocket hub; REST responses only carry
// the direct result of the call.
package api
