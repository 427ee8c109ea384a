package service

import (
	"context"
	"testing"
	"time"

	"github.com/Jerem-14/jeu-react-backend/game/engine"
)

func finishedSession(t *testing.T, svc *gameService, id string) string {
	t.Helper()
	sessionID := setupTwoPlayerSession(t, svc, id)
	finishGame(t, svc, sessionID)
	return sessionID
}

func TestRematch_RequestAndAccept(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-accept")

	if err := svc.RequestRematch(context.Background(), id, alice.ID); err != nil {
		t.Fatalf("Failed to request rematch: %v", err)
	}

	event, ok := bc.lastEvent(EventRematchRequested)
	if !ok {
		t.Fatal("Expected a rematchRequested event")
	}
	requested := event.payload.(RematchRequestedPayload)
	if requested.PlayerID != alice.ID {
		t.Errorf("Expected request by alice, got %s", requested.PlayerID)
	}
	if requested.ExpiresAt.IsZero() {
		t.Error("Expected an expiry deadline on the request")
	}

	if err := svc.AcceptRematch(context.Background(), id, bob.ID); err != nil {
		t.Fatalf("Failed to accept rematch: %v", err)
	}

	event, ok = bc.lastEvent(EventRematchStarted)
	if !ok {
		t.Fatal("Expected a rematchStarted event")
	}
	started := event.payload.(RematchStartedPayload)
	if started.SessionID != id {
		t.Errorf("Expected rematchStarted on the old session, got %s", started.SessionID)
	}
	if started.NewSessionID == "" || started.NewSessionID == id {
		t.Errorf("Expected a fresh session ID, got %q", started.NewSessionID)
	}

	state, err := svc.GetState(context.Background(), started.NewSessionID)
	if err != nil {
		t.Fatalf("Failed to load the new session: %v", err)
	}
	if state.Status != engine.StatusInProgress {
		t.Errorf("Expected the rematch in progress, got %s", state.Status)
	}
	if len(state.Players) != 2 {
		t.Fatalf("Expected both players in the rematch, got %d", len(state.Players))
	}
	for pid, p := range state.Players {
		if p.Score != 0 {
			t.Errorf("Expected zeroed score for %s, got %d", pid, p.Score)
		}
	}
	if state.TurnPlayerID != alice.ID {
		t.Errorf("Expected the requester to open the rematch, got %s", state.TurnPlayerID)
	}
}

func TestRematch_RequestBeforeFinish(t *testing.T) {
	svc, _, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := setupTwoPlayerSession(t, svc, "rematch-early")

	if err := svc.RequestRematch(context.Background(), id, alice.ID); err != ErrGameNotFinished {
		t.Errorf("Expected ErrGameNotFinished, got %v", err)
	}
}

func TestRematch_NonParticipant(t *testing.T) {
	svc, _, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-stranger")

	if err := svc.RequestRematch(context.Background(), id, carol.ID); err != engine.ErrUnknownPlayer {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
}

func TestRematch_DuplicateRequest(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-dup")

	svc.RequestRematch(context.Background(), id, alice.ID)
	if err := svc.RequestRematch(context.Background(), id, alice.ID); err != nil {
		t.Fatalf("Expected duplicate request to be a no-op, got %v", err)
	}
	if bc.eventCount(EventRematchRequested) != 1 {
		t.Errorf("Expected exactly one rematchRequested event, got %d", bc.eventCount(EventRematchRequested))
	}
}

func TestRematch_CrossRequestCountsAsAcceptance(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-cross")

	svc.RequestRematch(context.Background(), id, alice.ID)
	if err := svc.RequestRematch(context.Background(), id, bob.ID); err != nil {
		t.Fatalf("Expected cross-request to start the rematch, got %v", err)
	}
	if bc.eventCount(EventRematchStarted) != 1 {
		t.Error("Expected the rematch to start without an explicit accept")
	}
}

func TestRematch_AcceptOwnRequest(t *testing.T) {
	svc, _, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-self")

	svc.RequestRematch(context.Background(), id, alice.ID)
	if err := svc.AcceptRematch(context.Background(), id, alice.ID); err != ErrNoRematchPending {
		t.Errorf("Expected ErrNoRematchPending, got %v", err)
	}
}

func TestRematch_Decline(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-decline")

	svc.RequestRematch(context.Background(), id, alice.ID)
	if err := svc.DeclineRematch(context.Background(), id, bob.ID); err != nil {
		t.Fatalf("Failed to decline: %v", err)
	}

	event, ok := bc.lastEvent(EventRematchDeclined)
	if !ok {
		t.Fatal("Expected a rematchDeclined event")
	}
	declined := event.payload.(RematchDeclinedPayload)
	if declined.PlayerID != bob.ID || declined.Expired {
		t.Errorf("Expected an explicit decline by bob, got %+v", declined)
	}

	if err := svc.AcceptRematch(context.Background(), id, bob.ID); err != ErrNoRematchPending {
		t.Errorf("Expected ErrNoRematchPending after decline, got %v", err)
	}

	t.Run("declining with nothing pending is harmless", func(t *testing.T) {
		if err := svc.DeclineRematch(context.Background(), id, alice.ID); err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	})
}

func TestRematch_Expiry(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 60*time.Millisecond)
	id := finishedSession(t, svc, "rematch-expiry")

	svc.RequestRematch(context.Background(), id, alice.ID)

	waitFor(t, time.Second, func() bool {
		event, ok := bc.lastEvent(EventRematchDeclined)
		if !ok {
			return false
		}
		return event.payload.(RematchDeclinedPayload).Expired
	}, "Rematch request never expired")

	if err := svc.AcceptRematch(context.Background(), id, bob.ID); err != ErrNoRematchPending {
		t.Errorf("Expected ErrNoRematchPending after expiry, got %v", err)
	}
}

func TestRematch_StaleExpiryIgnored(t *testing.T) {
	svc, bc, _ := newTestService(t, 20*time.Millisecond, 5*time.Second)
	id := finishedSession(t, svc, "rematch-stale")

	svc.RequestRematch(context.Background(), id, alice.ID)

	// A timer from an earlier, already-replaced request must not touch the
	// live one
	svc.expireRematch(id, &pendingRematch{requestedBy: alice.ID})

	if bc.eventCount(EventRematchDeclined) != 0 {
		t.Error("Expected the stale expiry to be ignored")
	}
	if err := svc.AcceptRematch(context.Background(), id, bob.ID); err != nil {
		t.Errorf("Expected the live request to still be acceptable, got %v", err)
	}
}
