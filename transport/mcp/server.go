package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/service"
)

// Server exposes the game service as MCP tools so agents can play over the
// same operations the websocket clients use
type Server struct {
	service   service.GameService
	mcpServer *server.MCPServer
}

// NewServer creates the MCP tool surface over the game service
func NewServer(svc service.GameService) *Server {
	s := &Server{service: svc}
	s.initMCPServer()
	return s
}

func (s *Server) initMCPServer() {
	s.mcpServer = server.NewMCPServer(
		"Memory Card Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Card Game - MCP Interface

Two players take turns flipping pairs of cards on a shared board. A match
scores a point and keeps the turn; a mismatch flips back after a second and
passes the turn. The player with the most matched pairs wins.

AVAILABLE TOOLS:
- create_session: Create a new game session as the first player
- join_session: Join an existing session as the second player
- flip_card: Flip one card on your turn
- game_state: Get the current board, scores, and turn
- list_sessions: List all active sessions
- request_rematch: Ask the other player for a rematch after the game ends
- accept_rematch: Accept a pending rematch request
- decline_rematch: Decline a pending rematch request
- delete_session: Delete a session you participate in

Flip two cards per turn. Card indices are board positions starting at 0.`),
	)

	s.registerTools()
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session as the first player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to create (optional, generated when omitted)",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
				"display_name": map[string]interface{}{
					"type":        "string",
					"description": "Your display name",
				},
			},
			Required: []string{"player_id"},
		},
	}, s.handleCreateSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "join_session",
		Description: "Join an existing session as the second player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to join",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
				"display_name": map[string]interface{}{
					"type":        "string",
					"description": "Your display name",
				},
			},
			Required: []string{"session_id", "player_id"},
		},
	}, s.handleJoinSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip one card on your turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
				"card_index": map[string]interface{}{
					"type":        "number",
					"description": "Board position of the card, starting at 0",
				},
			},
			Required: []string{"session_id", "player_id", "card_index"},
		},
	}, s.handleFlipCard)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, scores, and turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleGameState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListSessions)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "request_rematch",
		Description: "Ask the other player for a rematch after the game ends",
		InputSchema: rematchSchema(),
	}, s.handleRequestRematch)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "accept_rematch",
		Description: "Accept a pending rematch request",
		InputSchema: rematchSchema(),
	}, s.handleAcceptRematch)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "decline_rematch",
		Description: "Decline a pending rematch request",
		InputSchema: rematchSchema(),
	}, s.handleDeclineRematch)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session you participate in",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to delete",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
			},
			Required: []string{"session_id", "player_id"},
		},
	}, s.handleDeleteSession)
}

func rematchSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Finished session ID",
			},
			"player_id": map[string]interface{}{
				"type":        "string",
				"description": "Your player ID",
			},
		},
		Required: []string{"session_id", "player_id"},
	}
}

// GetMCPServer returns the underlying MCP server for mounting on a transport
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func toolArgs(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)
	displayName, _ := args["display_name"].(string)

	state, err := s.service.CreateSession(ctx, sessionID, engine.Player{ID: playerID, DisplayName: displayName})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Session %s created. Waiting for a second player.\n\n%s",
		state.SessionID, formatGameState(state))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleJoinSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)
	displayName, _ := args["display_name"].(string)

	state, err := s.service.JoinSession(ctx, sessionID, engine.Player{ID: playerID, DisplayName: displayName})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Joined session %s. The game is on.\n\n%s", sessionID, formatGameState(state))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleFlipCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)
	cardIndex, ok := args["card_index"].(float64)
	if !ok {
		return mcp.NewToolResultError("card_index is required"), nil
	}

	flip, err := s.service.FlipCard(ctx, sessionID, playerID, int(cardIndex))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.service.GetState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", formatFlipResult(flip), formatGameState(state))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)

	state, err := s.service.GetState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(state)), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := s.service.ListSessions(ctx)
	if len(infos) == 0 {
		return mcp.NewToolResultText("No active sessions."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active sessions (%d):\n\n", len(infos)))
	for _, info := range infos {
		sb.WriteString(fmt.Sprintf("• %s — %s, %d player(s), last active %s\n",
			info.ID, info.Status, info.PlayerCount, info.LastAccessedAt.Format("15:04:05")))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleRequestRematch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)

	if err := s.service.RequestRematch(ctx, sessionID, playerID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Rematch requested. Waiting for the other player."), nil
}

func (s *Server) handleAcceptRematch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)

	if err := s.service.AcceptRematch(ctx, sessionID, playerID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Rematch accepted. A new session has started; list sessions to find it."), nil
}

func (s *Server) handleDeclineRematch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)

	if err := s.service.DeclineRematch(ctx, sessionID, playerID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Rematch declined."), nil
}

func (s *Server) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	playerID, _ := args["player_id"].(string)

	if err := s.service.DeleteSession(ctx, sessionID, playerID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted.", sessionID)), nil
}

func formatFlipResult(r *engine.FlipResult) string {
	switch {
	case r.GameOver:
		return "Match! That was the last pair — the game is over."
	case r.Match:
		return "Match! You keep the turn."
	case r.AwaitingSecondFlip:
		return "Card flipped. Pick a second card."
	default:
		return fmt.Sprintf("No match. The cards flip back shortly and the turn passes to %s.", r.NextTurnPlayerID)
	}
}

// formatGameState renders the board as text. Face-down cards show their
// index, face-up cards their media ID, matched cards are bracketed.
func formatGameState(g *engine.Game) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Session: %s (%s)\n", g.SessionID, g.Status))

	ids := make([]string, 0, len(g.Players))
	for id := range g.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := g.Players[id]
		marker := " "
		if id == g.TurnPlayerID {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s): %d\n", marker, p.DisplayName, id, p.Score))
	}

	sb.WriteString("Board:\n")
	for _, c := range g.Deck {
		switch {
		case c.Matched:
			sb.WriteString(fmt.Sprintf("  [%d: %s]\n", c.Index, c.MediaID))
		case c.FaceUp:
			sb.WriteString(fmt.Sprintf("   %d: %s\n", c.Index, c.MediaID))
		default:
			sb.WriteString(fmt.Sprintf("   %d: ???\n", c.Index))
		}
	}

	if g.Status == engine.StatusFinished {
		if g.IsDraw {
			sb.WriteString("Result: draw\n")
		} else {
			sb.WriteString(fmt.Sprintf("Result: winner %s\n", strings.Join(g.Winners, ", ")))
		}
	}
	return sb.String()
}
