package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authService "ragchat/internal/service/auth"
	"ragchat/pkg/utils"
)

const authCookieName = "auth_token"

// Handler exposes registration, login, logout and the current-user lookup.
type Handler struct {
	authSvc *authService.Service
}

// New creates the auth handler.
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes mounts the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	anonymousUserID := r.URL.Query().Get("anonymous_user_id")

	result, err := h.authSvc.Register(r.Context(), payload.Email, payload.Password, payload.Name, anonymousUserID)
	if err != nil {
		if errors.Is(err, authService.ErrEmailTaken) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.setAuthCookie(w, result.Token)
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, authService.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.setAuthCookie(w, result.Token)
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	u, err := h.authSvc.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, authService.ErrInvalidToken):
			utils.RespondError(w, http.StatusUnauthorized, "invalid token")
		case errors.Is(err, authService.ErrUserNotFound):
			utils.RespondError(w, http.StatusUnauthorized, "user not found")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to load user")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, u)
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.authSvc.TokenTTL().Seconds()),
	})
}
