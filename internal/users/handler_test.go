package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taskkeeper/taskkeeper/internal/platform/httpx"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/users"
	_ "github.com/taskkeeper/taskkeeper/testing"
)

func newUserRouter(t *testing.T, f *fixture) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)

	r := chi.NewRouter()
	r.Route("/users", users.NewHandler(nil, f.svc).MountRoutes)
	return r, sessions
}

func serveAs(t *testing.T, h http.Handler, sessions *shared.SessionManager, userID string, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func problemOf(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var pd httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pd))
	return pd
}

func TestGetMeRequiresSession(t *testing.T) {
	f := newFixture(t)
	h, sessions := newUserRouter(t, f)

	rr := serveAs(t, h, sessions, "", http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMe(t *testing.T) {
	f := newFixture(t)
	id := f.registerAndLogin(t)
	h, sessions := newUserRouter(t, f)

	rr := serveAs(t, h, sessions, id, http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "grace@ayoola.com", body["email"])
	require.Equal(t, true, body["logged_in"])
	require.NotContains(t, body, "password_hash")
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newFixture(t)
	id := f.registerAndLogin(t)
	h, sessions := newUserRouter(t, f)

	rr := serveAs(t, h, sessions, id, http.MethodPost, "/users/me/password", `{"old_password":"123456","new_password":"123456"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, users.ErrSamePassword.Error(), problemOf(t, rr).Detail)

	rr = serveAs(t, h, sessions, id, http.MethodPost, "/users/me/password", `{"old_password":"nope","new_password":"password"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serveAs(t, h, sessions, id, http.MethodPost, "/users/me/password", `{"old_password":"123456","new_password":"password"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Password changed successfully")
}

func TestChangeEmailEndpoint(t *testing.T) {
	f := newFixture(t)
	id := f.registerAndLogin(t)
	f.register(t, users.RegisterUserRequest{FirstName: "Ada", LastName: "Obi", Email: "ada@obi.com", Password: "secret"})
	h, sessions := newUserRouter(t, f)

	rr := serveAs(t, h, sessions, id, http.MethodPost, "/users/me/email", `{"old_email":"grace@ayoola.com","new_email":"ada@obi.com"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = serveAs(t, h, sessions, id, http.MethodPost, "/users/me/email", `{"old_email":"grace@ayoola.com","new_email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveAs(t, h, sessions, id, http.MethodPost, "/users/me/email", `{"old_email":"grace@ayoola.com","new_email":"g@ayoola.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestUserEndpointsRejectLoggedOutAccount(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, graceRequest())
	h, sessions := newUserRouter(t, f)

	rr := serveAs(t, h, sessions, id, http.MethodPost, "/users/me/password", `{"old_password":"123456","new_password":"password"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "User is not logged in", problemOf(t, rr).Detail)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusConflict, users.StatusFor(users.ErrDuplicateEmail))
	require.Equal(t, http.StatusUnauthorized, users.StatusFor(users.ErrInvalidCredentials))
	require.Equal(t, http.StatusNotFound, users.StatusFor(users.ErrUserNotFound))
	require.Equal(t, http.StatusUnprocessableEntity, users.StatusFor(users.ErrSameEmail))
	require.Equal(t, http.StatusUnprocessableEntity, users.StatusFor(users.ErrIncorrectOldEmail))
}
