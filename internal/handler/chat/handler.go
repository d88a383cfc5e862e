package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ragchat/internal/model/chat"
	"ragchat/internal/service/rag"
	sessionService "ragchat/internal/service/session"
	"ragchat/pkg/utils"
)

// Pipeline is the question-answering capability behind the prompt endpoint.
type Pipeline interface {
	Answer(ctx context.Context, query string, history []chat.Message) (rag.Response, error)
}

// Handler serves the prompt and transcript endpoints.
type Handler struct {
	sessions *sessionService.Service
	pipeline Pipeline
}

// New creates the chat handler. A nil pipeline disables the prompt endpoint.
func New(sessions *sessionService.Service, pipeline Pipeline) *Handler {
	return &Handler{sessions: sessions, pipeline: pipeline}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/prompt", h.handlePrompt)
	r.Get("/chat/messages/{sessionID}", h.handleMessages)
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt    string `json:"prompt"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Prompt == "" || payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt and session_id are required")
		return
	}
	if h.pipeline == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "retrieval pipeline unavailable")
		return
	}

	ctx := r.Context()
	if _, err := h.sessions.AddMessage(ctx, payload.SessionID, chat.TypeUser, payload.Prompt); err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("[chat] failed to save user message: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "error processing your request")
		return
	}

	history, err := h.sessions.Messages(ctx, payload.SessionID, 0)
	if err != nil {
		log.Printf("[chat] failed to load transcript: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "error processing your request")
		return
	}

	response, err := h.pipeline.Answer(ctx, payload.Prompt, history)
	if err != nil {
		log.Printf("[chat] pipeline error for session=%s: %v", payload.SessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "error processing your request")
		return
	}

	if _, err := h.sessions.AddMessage(ctx, payload.SessionID, chat.TypeAI, response.Answer); err != nil {
		log.Printf("[chat] failed to save ai message: %v", err)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"userPrompt":   payload.Prompt,
		"llm_response": response.Answer,
	})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := parseLimit(r, sessionService.DefaultMessageLimit)

	messages, err := h.sessions.Messages(r.Context(), sessionID, limit)
	if err != nil {
		log.Printf("[chat] failed to load messages: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	type messageData struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	data := make([]messageData, 0, len(messages))
	for _, msg := range messages {
		data = append(data, messageData{ID: msg.MessageID, Type: msg.Type, Content: msg.Content})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   data,
		"count":      len(data),
	})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
