package httpx

import (
	"net/http"

	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// RequireUser rejects requests whose session is not bound to a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.UserIDFromContext(r.Context()); !ok {
			RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
