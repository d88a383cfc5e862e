package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	sessionService "ragchat/internal/service/session"
	"ragchat/internal/store"
)

func setupRouter() (*chi.Mux, *sessionService.Service) {
	svc := sessionService.NewService(store.NewMemoryStore())

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, svc
}

func createSession(t *testing.T, r *chi.Mux, userID string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"user_id": userID})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return body.SessionID
}

func TestCreateSessionSmartAnonymous(t *testing.T) {
	r, _ := setupRouter()

	first := createSession(t, r, "anon_42")
	second := createSession(t, r, "anon_42")

	if first != second {
		t.Fatalf("expected anonymous user to keep one session, got %s and %s", first, second)
	}
}

func TestCreateSessionSmartRegistered(t *testing.T) {
	r, _ := setupRouter()

	first := createSession(t, r, "registered-user")
	second := createSession(t, r, "registered-user")

	if first == second {
		t.Fatalf("expected distinct sessions for registered user, got %s twice", first)
	}
}

func TestCreateSessionMissingUserID(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r, _ := setupRouter()

	sessionID := createSession(t, r, "registered-user")

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// Deleting again reports the session as missing.
	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID, nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListUserSessions(t *testing.T) {
	r, _ := setupRouter()

	createSession(t, r, "registered-user")
	createSession(t, r, "registered-user")

	req := httptest.NewRequest(http.MethodGet, "/users/registered-user/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Sessions []struct {
			SessionID    string `json:"session_id"`
			Title        string `json:"title"`
			UpdatedAt    string `json:"updated_at"`
			MessageCount int    `json:"message_count"`
		} `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(body.Sessions))
	}
	if body.Sessions[0].Title != "New Chat" {
		t.Fatalf("unexpected title: %s", body.Sessions[0].Title)
	}
}

func TestListAnonymousSessionsIgnoresLimit(t *testing.T) {
	r, _ := setupRouter()

	createSession(t, r, "anon_7")

	req := httptest.NewRequest(http.MethodGet, "/users/anon_7/sessions?limit=50", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(body.Sessions))
	}
}
