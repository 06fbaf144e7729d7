package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskkeeper/taskkeeper/internal/app"
	"github.com/taskkeeper/taskkeeper/internal/auth"
	"github.com/taskkeeper/taskkeeper/internal/observability"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/tasks"
	"github.com/taskkeeper/taskkeeper/internal/testing/memstore"
	"github.com/taskkeeper/taskkeeper/internal/users"
	"github.com/taskkeeper/taskkeeper/jobs"
	_ "github.com/taskkeeper/taskkeeper/testing"
)

// browser carries the session cookie and CSRF token between requests.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
	csrf   string
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	if b.csrf != "" {
		req.Header.Set(shared.CSRFHeader, b.csrf)
	}
	rr := httptest.NewRecorder()
	b.h.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name != "taskkeeper_session" {
			continue
		}
		if c.MaxAge < 0 {
			b.cookie = nil
		} else {
			b.cookie = c
		}
	}
	return rr
}

func (b *browser) fetchCSRF() {
	b.t.Helper()
	rr := b.do(http.MethodGet, "/auth/csrf", "")
	require.Equal(b.t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(b.t, json.Unmarshal(rr.Body.Bytes(), &body))
	b.csrf = body["csrf_token"]
	require.NotEmpty(b.t, b.csrf)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 1000}
	sessions := shared.NewSessionManager(client, "taskkeeper_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()

	userSvc := users.NewService(memstore.NewUsers(), users.NewBcryptHasher(bcrypt.MinCost), nil)
	userSvc.SetEvents(metrics)
	taskSvc := tasks.NewService(memstore.NewTasks(), nil)
	taskSvc.SetOwners(userSvc)

	return app.NewRouter(app.RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(nil, userSvc, sessions, csrf),
		UsersHandler:   users.NewHandler(nil, userSvc),
		TasksHandler:   tasks.NewHandler(nil, taskSvc),
		Accounts:       userSvc,
		JobHandler:     jobs.NewHandler(nil, nil),
		Metrics:        metrics,
	})
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	b := &browser{t: t, h: newTestRouter(t)}
	rr := b.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Nil(t, b.cookie, "untouched sessions are not persisted")
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	b := &browser{t: t, h: newTestRouter(t)}
	rr := b.do(http.MethodPost, "/auth/register", `{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)

	b.fetchCSRF()
	b.csrf = b.csrf + "tampered"
	rr = b.do(http.MethodPost, "/auth/register", `{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAccountAndTaskFlow(t *testing.T) {
	h := newTestRouter(t)
	b := &browser{t: t, h: h}
	b.fetchCSRF()

	rr := b.do(http.MethodPost, "/auth/register", `{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	require.Equal(t, http.StatusUnauthorized, b.do(http.MethodGet, "/users/me", "").Code)

	anonymous := b.cookie.Value
	rr = b.do(http.MethodPost, "/auth/login", `{"email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Welcome back Grace Ayoola")
	require.NotEqual(t, anonymous, b.cookie.Value, "session id rotates on login")

	rr = b.do(http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"logged_in":true`)

	rr = b.do(http.MethodPost, "/tasks", `{"title":"Ship","description":"v1"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created tasks.CreateTaskResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = b.do(http.MethodPost, "/tasks/"+created.TaskID+"/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = b.do(http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status_label":"Completed"`)

	rr = b.do(http.MethodPost, "/users/me/password", `{"old_password":"123456","new_password":"password"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = b.do(http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "We hope to see you soon")
	require.Nil(t, b.cookie)

	require.Equal(t, http.StatusUnauthorized, b.do(http.MethodGet, "/users/me", "").Code)

	rr = b.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `taskkeeper_http_requests_total{code="201",route="/auth/register"} 1`)
	require.Contains(t, rr.Body.String(), `taskkeeper_account_events_total{event="login"} 1`)
}

func TestJobsHealthRoute(t *testing.T) {
	b := &browser{t: t, h: newTestRouter(t)}
	rr := b.do(http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"queue":"default"`)
}

func TestLogoutInvalidatesOtherSessions(t *testing.T) {
	h := newTestRouter(t)
	laptop := &browser{t: t, h: h}
	phone := &browser{t: t, h: h}

	laptop.fetchCSRF()
	rr := laptop.do(http.MethodPost, "/auth/register", `{"first_name":"Grace","last_name":"Ayoola","email":"grace@ayoola.com","password":"123456"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	for _, b := range []*browser{laptop, phone} {
		if b.csrf == "" {
			b.fetchCSRF()
		}
		rr = b.do(http.MethodPost, "/auth/login", `{"email":"grace@ayoola.com","password":"123456"}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, http.StatusOK, phone.do(http.MethodGet, "/users/me", "").Code)

	require.Equal(t, http.StatusOK, laptop.do(http.MethodPost, "/auth/logout", "").Code)

	rr = phone.do(http.MethodPost, "/tasks", `{"title":"Ship"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "User is not logged in")
	require.Nil(t, phone.cookie, "stale session is destroyed")

	require.Equal(t, http.StatusUnauthorized, phone.do(http.MethodGet, "/users/me", "").Code)
}
