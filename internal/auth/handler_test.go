package auth_test

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
	"golang.org/x/crypto/bcrypt"

	"github.com/taskkeeper/taskkeeper/internal/auth"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/testing/memstore"
	"github.com/taskkeeper/taskkeeper/internal/users"
	_ "github.com/taskkeeper/taskkeeper/testing"
)

type authEnv struct {
	t        *testing.T
	router   http.Handler
	sessions *shared.SessionManager
	service  *users.Service
	redis    *miniredis.Miniredis
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	service := users.NewService(memstore.NewUsers(), users.NewBcryptHasher(bcrypt.MinCost), nil)

	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(nil, service, sessions, shared.NewCSRFManager("csrfsecret")).MountRoutes)
	return &authEnv{t: t, router: r, sessions: sessions, service: service, redis: mr}
}

// serve runs one request inside a loaded session and commits it afterwards.
func (e *authEnv) serve(sess *shared.Session, method, path, body string) (*httptest.ResponseRecorder, *shared.Session) {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if sess == nil {
		var err error
		sess, err = e.sessions.Load(context.Background(), req)
		require.NoError(e.t, err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req.WithContext(ctx))
	require.NoError(e.t, e.sessions.Commit(ctx, rr, sess))
	return rr, sess
}

func TestCSRFEndpointIssuesToken(t *testing.T) {
	env := newAuthEnv(t)

	rr, sess := env.serve(nil, http.MethodGet, "/auth/csrf", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body["csrf_token"])
	require.Equal(t, body["csrf_token"], sess.Get(shared.CSRFSessionKey))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newAuthEnv(t)

	rr, sess := env.serve(nil, http.MethodPost, "/auth/register",
		`{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), "Registration Successful")

	rr, _ = env.serve(nil, http.MethodPost, "/auth/register",
		`{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	before := sess.ID
	rr, sess = env.serve(sess, http.MethodPost, "/auth/login", `{"email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Welcome back Grace Ayoola")
	require.NotEmpty(t, sess.User())
	require.NotEqual(t, before, sess.ID)
	require.True(t, env.redis.Exists("session:"+sess.ID))
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newAuthEnv(t)
	_, err := env.service.RegisterUser(context.Background(), users.RegisterUserRequest{FirstName: "Grace", LastName: "Ayoola", Email: "grace@ayoola.com", Password: "123456"})
	require.NoError(t, err)

	rr, sess := env.serve(nil, http.MethodPost, "/auth/login", `{"email":"grace@ayoola.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "Invalid credentials")
	require.Empty(t, sess.User())
}

func TestLogout(t *testing.T) {
	env := newAuthEnv(t)
	_, err := env.service.RegisterUser(context.Background(), users.RegisterUserRequest{FirstName: "Grace", LastName: "Ayoola", Email: "grace@ayoola.com", Password: "123456"})
	require.NoError(t, err)

	rr, _ := env.serve(nil, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	_, sess := env.serve(nil, http.MethodPost, "/auth/login", `{"email":"grace@ayoola.com","password":"123456"}`)
	userID := sess.User()

	rr, sess = env.serve(sess, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "We hope to see you soon")
	require.True(t, sess.Destroyed())
	require.False(t, env.redis.Exists("session:"+sess.ID))

	user, err := env.service.GetUser(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, user.LoggedIn)
}
