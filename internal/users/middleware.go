package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskkeeper/taskkeeper/internal/platform/httpx"
	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// AccountLookup resolves the account a session is bound to.
type AccountLookup interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// RequireLoggedIn admits a request only when its session is bound to an account
// that is still logged in. Sessions pointing at a logged-out or missing account
// are destroyed and answered with ErrUserNotLoggedIn.
func RequireLoggedIn(accounts AccountLookup, sessions *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			user, err := accounts.GetUser(r.Context(), userID)
			switch {
			case err == nil && user.LoggedIn:
				next.ServeHTTP(w, r)
				return
			case err == nil, errors.Is(err, ErrUserNotFound):
				if sessions != nil {
					sessions.Destroy(shared.SessionFromContext(r.Context()))
				}
				logger.Info("stale session rejected", slog.String("user_id", userID))
				RespondError(w, ErrUserNotLoggedIn)
			default:
				logger.Error("load session account", slog.Any("error", err))
				RespondError(w, err)
			}
		})
	}
}
