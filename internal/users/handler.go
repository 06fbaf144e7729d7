package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskkeeper/taskkeeper/internal/platform/httpx"
	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// Handler manages the signed-in user's account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes. Every route requires a bound session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httpx.RequireUser)
	r.Get("/me", h.getMe)
	r.Post("/me/password", h.changePassword)
	r.Post("/me/email", h.changeEmail)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	req.UserID, _ = shared.UserIDFromContext(r.Context())
	resp, err := h.service.ChangePassword(r.Context(), req)
	if err != nil {
		h.fail(w, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) changeEmail(w http.ResponseWriter, r *http.Request) {
	var req ChangeEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	req.UserID, _ = shared.UserIDFromContext(r.Context())
	resp, err := h.service.ChangeEmail(r.Context(), req)
	if err != nil {
		h.fail(w, "change email", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status := RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
}

// StatusFor maps account errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIncorrectOldPassword),
		errors.Is(err, ErrSamePassword),
		errors.Is(err, ErrIncorrectOldEmail),
		errors.Is(err, ErrSameEmail):
		return http.StatusUnprocessableEntity
	default:
		return httpx.StatusFor(err)
	}
}

// RespondError writes err as a problem document and returns the status used.
func RespondError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	httpx.RespondErrorWithStatus(w, status, err)
	return status
}
