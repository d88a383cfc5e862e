package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ragchat/internal/config"
	authHandler "ragchat/internal/handler/auth"
	chatHandler "ragchat/internal/handler/chat"
	sessionHandler "ragchat/internal/handler/session"
	"ragchat/internal/handler/stream"
	middlewarePkg "ragchat/internal/middleware"
	authService "ragchat/internal/service/auth"
	"ragchat/internal/service/rag"
	sessionService "ragchat/internal/service/session"
	"ragchat/pkg/utils"
)

// NewRouter wires HTTP routes to core services. ragSvc may be nil when the
// pipeline credentials are not configured; the chat surfaces degrade to 503.
func NewRouter(cfg *config.Config, sessionSvc *sessionService.Service, authSvc *authService.Service, ragSvc *rag.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/", handleHealth)
	r.Get("/health", handleHealth)

	var pipeline chatHandler.Pipeline
	var streamHandler *stream.Handler
	if ragSvc != nil {
		pipeline = ragSvc
		streamHandler = stream.New(ragSvc, sessionSvc)
	}

	r.Route("/api", func(api chi.Router) {
		authHandler.New(authSvc).RegisterRoutes(api)
		chatHandler.New(sessionSvc, pipeline).RegisterRoutes(api)
		sessionHandler.New(sessionSvc).RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "streaming unavailable")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Service is running",
	})
}
