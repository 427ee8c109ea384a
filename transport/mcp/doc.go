// Package mcp exposes the memory game over the Model Context Protocol so AI
// agents can play through the same service the websocket clients use.
//
// MCP Tools:
//
//   - create_session: Create a new session as the first player
//   - join_session: Join an existing session as the second player
//   - flip_card: Flip one card on your turn
//   - game_state: Get the board, scores, and turn with a text rendering
//   - list_sessions: List all active sessions
//   - request_rematch / accept_rematch / decline_rematch: Rematch handshake
//   - delete_session: Delete a session you participate in
//
// Agents poll game_state instead of receiving broadcasts; the delayed unflip
// after a mismatch shows up on the next poll.
//
// Usage:
//
//	srv := mcp.NewServer(gameService)
//	http.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
//		body, _ := io.ReadAll(r.Body)
//		response := srv.GetMCPServer().HandleMessage(r.Context(), body)
//		json.NewEncoder(w).Encode(response)
//	})
package mcp
