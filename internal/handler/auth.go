package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"wot-clan-dashboard/internal/middleware"
	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/pkg/apierror"
	"wot-clan-dashboard/pkg/response"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRequest is the body for POST /auth/register. One of account_id or
// nickname must identify the clan account.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AccountID int64  `json:"account_id"`
	Nickname  string `json:"nickname"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Username == "" || req.Password == "" {
		response.Error(w, apierror.BadRequest("username and password are required"))
		return
	}

	err := h.auth.Register(r.Context(), req.Username, req.Password, req.AccountID, req.Nickname)
	switch {
	case err == nil:
		response.Created(w, map[string]string{"status": "registered"})
	case errors.Is(err, service.ErrAccountRequired):
		response.Error(w, apierror.BadRequest(err.Error()))
	case errors.Is(err, service.ErrNotClanMember):
		response.Error(w, apierror.Forbidden(err.Error()))
	case errors.Is(err, repository.ErrUserExists):
		response.Error(w, apierror.Conflict(err.Error()))
	default:
		response.Error(w, apierror.InternalError("registration failed"))
	}
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login. The session token is returned both as an
// httpOnly cookie and in the body for non-browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(w, apierror.Unauthorized(err.Error()))
			return
		}
		response.Error(w, apierror.InternalError("login failed"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.OK(w, map[string]string{"token": token})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		if c, err := r.Cookie(middleware.SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token != "" {
		_ = h.auth.Logout(r.Context(), token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	response.OK(w, map[string]string{"status": "logged_out"})
}
