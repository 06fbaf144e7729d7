package tasks

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskkeeper/taskkeeper/internal/platform/httpx"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/users"
)

// Handler exposes task endpoints scoped to the session user.
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

// MountRoutes registers task routes. Every route requires a bound session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httpx.RequireUser)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/in-progress", h.inProgress)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	list, err := h.service.GetAllTasks(r.Context(), userID)
	if err != nil {
		h.fail(w, "list tasks", err)
		return
	}
	out := make([]FindTaskResponse, 0, len(list))
	for i := range list {
		out = append(out, toFindTaskResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	req.UserID, _ = shared.UserIDFromContext(r.Context())
	resp, err := h.service.CreateTask(r.Context(), req)
	if err != nil {
		h.fail(w, "create task", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resp, err := h.service.GetTaskByID(r.Context(), FindTaskRequest{TaskID: chi.URLParam(r, "id"), UserID: userID})
	if err != nil {
		h.fail(w, "get task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	req.TaskID = chi.URLParam(r, "id")
	req.UserID, _ = shared.UserIDFromContext(r.Context())
	resp, err := h.service.UpdateTask(r.Context(), req)
	if err != nil {
		h.fail(w, "update task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resp, err := h.service.DeleteTask(r.Context(), DeleteTaskRequest{TaskID: chi.URLParam(r, "id"), UserID: userID})
	if err != nil {
		h.fail(w, "delete task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resp, err := h.service.MarkTaskAsCompleted(r.Context(), MarkTaskRequest{TaskID: chi.URLParam(r, "id"), UserID: userID})
	if err != nil {
		h.fail(w, "complete task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) inProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resp, err := h.service.MarkTaskAsInProgress(r.Context(), MarkTaskRequest{TaskID: chi.URLParam(r, "id"), UserID: userID})
	if err != nil {
		h.fail(w, "start task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrTaskNotOwned):
		status = http.StatusForbidden
	default:
		status = users.StatusFor(err)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondErrorWithStatus(w, status, err)
}
