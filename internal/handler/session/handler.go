package session

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ragchat/internal/model/identity"
	sessionService "ragchat/internal/service/session"
	"ragchat/pkg/utils"
)

// Handler serves session creation, listing and deletion.
type Handler struct {
	sessions *sessionService.Service
}

// New creates the session handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
	r.Get("/users/{userID}/sessions", h.handleList)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sessionID, err := h.sessions.CreateSmart(r.Context(), identity.ParseUserRef(payload.UserID))
	if err != nil {
		log.Printf("[session] failed to create session: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	existed, err := h.sessions.Delete(r.Context(), sessionID)
	if err != nil {
		log.Printf("[session] failed to delete session: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if !existed {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	summaries, err := h.sessions.UserSessions(r.Context(), identity.ParseUserRef(userID), limit)
	if err != nil {
		log.Printf("[session] failed to list sessions: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}
