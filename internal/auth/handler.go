package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskkeeper/taskkeeper/internal/platform/httpx"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/users"
)

// AccountService is the subset of users.Service driving authentication flows.
type AccountService interface {
	RegisterUser(ctx context.Context, req users.RegisterUserRequest) (*users.RegisterUserResponse, error)
	Login(ctx context.Context, req users.LoginRequest) (*users.LoginResponse, error)
	Logout(ctx context.Context, req users.LogoutRequest) (*users.LogoutResponse, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        AccountService
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service AccountService, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.With(httpx.RequireUser).Post("/logout", h.handleLogout)
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	resp, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		h.respondError(w, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.respondError(w, "login", err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Renew(sess)
		sess.SetUser(resp.UserID)
	} else {
		h.logger.Error("session missing during login")
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resp, err := h.service.Logout(r.Context(), users.LogoutRequest{UserID: userID})
	if err != nil && !errors.Is(err, users.ErrUserNotLoggedIn) && !errors.Is(err, users.ErrUserNotFound) {
		h.respondError(w, "logout", err)
		return
	}
	// A session pointing at a logged-out or missing account is stale either way.
	h.sessionManager.Destroy(shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "logout", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if status := users.RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
}
