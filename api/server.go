package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/service"
	"github.com/Jerem-14/jeu-react-backend/game/session"
	"github.com/Jerem-14/jeu-react-backend/storage/postgres"
	"github.com/Jerem-14/jeu-react-backend/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	stats   *postgres.Store
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when websockets are
// served elsewhere; stats may be nil when no database is configured.
func NewServer(gameService service.GameService, hub *websocket.Hub, stats *postgres.Store) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		stats:   stats,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session lifecycle
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/join", s.handleJoinSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/flip", s.handleFlipCard).Methods("POST")
	api.HandleFunc("/sessions/{id}/rematch", s.handleRematch).Methods("POST")

	// Player statistics
	api.HandleFunc("/players/{id}/stats", s.handlePlayerStats).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service and engine errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, engine.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, engine.ErrSessionFull),
		errors.Is(err, service.ErrSessionFinished):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrInvalidCard),
		errors.Is(err, service.ErrGameNotFinished),
		errors.Is(err, service.ErrNoRematchPending):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   string `json:"session_id,omitempty"`
		PlayerID    string `json:"player_id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	state, err := s.service.CreateSession(r.Context(), req.SessionID, engine.Player{
		ID:          req.PlayerID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, state)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.ListSessions(r.Context())

	limit := len(sessions)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	if err := s.service.DeleteSession(r.Context(), sessionID, playerID); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID    string `json:"player_id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	state, err := s.service.JoinSession(r.Context(), sessionID, engine.Player{
		ID:          req.PlayerID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleFlipCard(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID  string `json:"player_id"`
		CardIndex *int   `json:"card_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" || req.CardIndex == nil {
		respondError(w, http.StatusBadRequest, "player_id and card_index are required")
		return
	}

	result, err := s.service.FlipCard(r.Context(), sessionID, req.PlayerID, *req.CardIndex)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		Action   string `json:"action"` // request, accept, decline
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	var err error
	switch req.Action {
	case "request":
		err = s.service.RequestRematch(r.Context(), sessionID, req.PlayerID)
	case "accept":
		err = s.service.AcceptRematch(r.Context(), sessionID, req.PlayerID)
	case "decline":
		err = s.service.DeclineRematch(r.Context(), sessionID, req.PlayerID)
	default:
		respondError(w, http.StatusBadRequest, "action must be request, accept, or decline")
		return
	}
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Rematch %s for session %s", req.Action, sessionID),
	})
}

// Player Statistics Handler

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		respondError(w, http.StatusNotImplemented, "player statistics require a database")
		return
	}

	playerID := mux.Vars(r)["id"]
	stats, err := s.stats.GetPlayerStats(r.Context(), playerID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Health check

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": len(s.service.ListSessions(r.Context())),
	})
}
