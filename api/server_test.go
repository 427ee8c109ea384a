package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
	"github.com/Jerem-14/jeu-react-backend/game/media"
	"github.com/Jerem-14/jeu-react-backend/game/service"
	"github.com/Jerem-14/jeu-react-backend/game/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	provider := media.NewStaticProvider(media.DefaultImageSet(), rand.New(rand.NewSource(1)))
	svc := service.NewGameService(session.NewManager(), provider, nil, nil)
	return NewServer(svc, nil, nil)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) *engine.Game {
	t.Helper()
	var state engine.Game
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode game state: %v", err)
	}
	return &state
}

func createSession(t *testing.T, srv *Server, id string) *engine.Game {
	t.Helper()
	rr := doRequest(t, srv, "POST", "/api/sessions", map[string]string{
		"session_id":   id,
		"player_id":    "alice",
		"display_name": "Alice",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decodeState(t, rr)
}

func TestAPI_CreateSession(t *testing.T) {
	srv := newTestServer(t)

	t.Run("creates session", func(t *testing.T) {
		state := createSession(t, srv, "api-create")
		if state.SessionID != "api-create" {
			t.Errorf("Expected session ID api-create, got %s", state.SessionID)
		}
		if state.Status != engine.StatusWaitingForPlayers {
			t.Errorf("Expected waitingForPlayers, got %s", state.Status)
		}
		if len(state.Deck) != 2*engine.DefaultMediaCount {
			t.Errorf("Expected %d cards, got %d", 2*engine.DefaultMediaCount, len(state.Deck))
		}
	})

	t.Run("missing player_id", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions", map[string]string{"display_name": "Nobody"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})

	t.Run("duplicate session", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions", map[string]string{
			"session_id": "api-create",
			"player_id":  "bob",
		})
		if rr.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", rr.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString("{nope"))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})
}

func TestAPI_JoinSession(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv, "api-join")

	t.Run("second player joins", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-join/join", map[string]string{
			"player_id":    "bob",
			"display_name": "Bob",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		state := decodeState(t, rr)
		if state.Status != engine.StatusInProgress {
			t.Errorf("Expected inProgress, got %s", state.Status)
		}
	})

	t.Run("session is full", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-join/join", map[string]string{
			"player_id": "carol",
		})
		if rr.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", rr.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/missing/join", map[string]string{
			"player_id": "bob",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rr.Code)
		}
	})
}

func TestAPI_FlipCard(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv, "api-flip")
	doRequest(t, srv, "POST", "/api/sessions/api-flip/join", map[string]string{
		"player_id": "bob", "display_name": "Bob",
	})

	t.Run("flip on turn", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-flip/flip", map[string]interface{}{
			"player_id": "alice", "card_index": 0,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var result engine.FlipResult
		if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode flip result: %v", err)
		}
		if !result.AwaitingSecondFlip {
			t.Error("Expected an awaiting-second-flip result")
		}
	})

	t.Run("out of turn", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-flip/flip", map[string]interface{}{
			"player_id": "bob", "card_index": 1,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})

	t.Run("missing card index", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-flip/flip", map[string]interface{}{
			"player_id": "alice",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})
}

func TestAPI_GetState(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv, "api-state")

	for _, path := range []string{"/api/sessions/api-state", "/api/sessions/api-state/state"} {
		rr := doRequest(t, srv, "GET", path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 for %s, got %d", path, rr.Code)
		}
		state := decodeState(t, rr)
		if state.SessionID != "api-state" {
			t.Errorf("Expected session api-state, got %s", state.SessionID)
		}
	}

	t.Run("unknown session", func(t *testing.T) {
		rr := doRequest(t, srv, "GET", "/api/sessions/missing", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rr.Code)
		}
	})
}

func TestAPI_ListSessions(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		createSession(t, srv, fmt.Sprintf("api-list-%d", i))
	}

	rr := doRequest(t, srv, "GET", "/api/sessions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode listing: %v", err)
	}
	if resp.Count != 3 || len(resp.Sessions) != 3 {
		t.Errorf("Expected 3 sessions, got count=%d len=%d", resp.Count, len(resp.Sessions))
	}

	t.Run("limit", func(t *testing.T) {
		rr := doRequest(t, srv, "GET", "/api/sessions?limit=2", nil)
		var resp struct {
			Count int `json:"count"`
		}
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Count != 2 {
			t.Errorf("Expected 2 sessions with limit, got %d", resp.Count)
		}
	})
}

func TestAPI_DeleteSession(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv, "api-delete")

	t.Run("missing player_id", func(t *testing.T) {
		rr := doRequest(t, srv, "DELETE", "/api/sessions/api-delete", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})

	t.Run("non-participant", func(t *testing.T) {
		rr := doRequest(t, srv, "DELETE", "/api/sessions/api-delete?player_id=mallory", nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rr.Code)
		}
	})

	t.Run("participant deletes", func(t *testing.T) {
		rr := doRequest(t, srv, "DELETE", "/api/sessions/api-delete?player_id=alice", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, srv, "GET", "/api/sessions/api-delete", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", rr.Code)
		}
	})
}

func TestAPI_Rematch(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv, "api-rematch")
	doRequest(t, srv, "POST", "/api/sessions/api-rematch/join", map[string]string{
		"player_id": "bob", "display_name": "Bob",
	})

	t.Run("rematch on a running game", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-rematch/rematch", map[string]string{
			"player_id": "alice", "action": "request",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		rr := doRequest(t, srv, "POST", "/api/sessions/api-rematch/rematch", map[string]string{
			"player_id": "alice", "action": "coinflip",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rr.Code)
		}
	})
}

func TestAPI_PlayerStatsWithoutDatabase(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, "GET", "/api/players/alice/stats", nil)
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501, got %d", rr.Code)
	}
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
}
