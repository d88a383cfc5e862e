package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"ragchat/internal/model/chat"
	"ragchat/internal/service/rag"
	sessionService "ragchat/internal/service/session"
	"ragchat/pkg/utils"
)

// Handler streams pipeline answers over Server-Sent Events.
type Handler struct {
	ragSvc   *rag.Service
	sessions *sessionService.Service
}

// New creates a stream handler.
func New(ragSvc *rag.Service, sessions *sessionService.Service) *Handler {
	return &Handler{ragSvc: ragSvc, sessions: sessions}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest persists the user turn, streams the pipeline answer
// chunk by chunk and persists the assembled answer when the stream ends.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	if _, err := h.sessions.AddMessage(ctx, sessionID, chat.TypeUser, userMessage); err != nil {
		h.sendSSEError(w, flusher, "failed to save user message")
		return err
	}

	history, err := h.sessions.Messages(ctx, sessionID, 0)
	if err != nil {
		h.sendSSEError(w, flusher, "failed to load conversation")
		return err
	}

	stream, err := h.ragSvc.Stream(ctx, userMessage, history)
	if err != nil {
		h.sendSSEError(w, flusher, "failed to start answer stream")
		return err
	}
	defer stream.Close()

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	var answer strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.sendSSEError(w, flusher, "answer stream interrupted")
			return fmt.Errorf("failed to receive stream chunk: %w", err)
		}
		if chunk.Content == "" {
			continue
		}

		answer.WriteString(chunk.Content)
		h.sendSSE(w, flusher, StreamResponse{Event: "chunk", Content: chunk.Content})
	}

	if answer.Len() > 0 {
		if _, err := h.sessions.AddMessage(ctx, sessionID, chat.TypeAI, answer.String()); err != nil {
			log.Printf("[stream] failed to save ai message for session=%s: %v", sessionID, err)
		}
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "done", SessionID: sessionID, Finished: true})
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, resp StreamResponse) {
	utils.SendSSEChunk(w, flusher, resp)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", Error: message})
}
