package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskkeeper/taskkeeper/internal/auth"
	"github.com/taskkeeper/taskkeeper/internal/observability"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/tasks"
	"github.com/taskkeeper/taskkeeper/internal/users"
	"github.com/taskkeeper/taskkeeper/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	TasksHandler   *tasks.Handler
	Accounts       users.AccountLookup
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with taskkeeper defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	// Account routes also require the bound account to still be logged in.
	accountGate := users.RequireLoggedIn(params.Accounts, params.SessionManager, params.Logger)
	r.With(accountGate).Route("/users", params.UsersHandler.MountRoutes)
	r.With(accountGate).Route("/tasks", params.TasksHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
