package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server *Server
	svc    *moderation.Service
	policy *moderation.Policy
	hub    *Hub
}

func newTestEnv(t *testing.T, backend moderation.Backend) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if backend == nil {
		backend = moderation.NewMemBackend()
	}
	svc := moderation.NewService(moderation.ServiceOptions{Store: moderation.NewStore(backend)})
	t.Cleanup(svc.Tracker().Stop)

	env := &testEnv{
		server: NewServer(Options{APISecret: testSecret}),
		svc:    svc,
		policy: moderation.NewPolicy(models.DefaultRetentionPolicy(), nil),
		hub:    NewHub(),
	}
	SetupAPIRoutes(env.server, API{
		Moderation: svc,
		Retention:  env.policy,
		Feed:       env.hub,
		Now:        func() time.Time { return testNow },
		BotReady:   func() bool { return true },
	})
	return env
}

func (e *testEnv) do(method, path, body string, withKey bool) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if withKey {
		r.Header.Set(APIKeyHeader, testSecret)
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWarningsCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/warnings/alice", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/warnings", `{"user":"alice","reason":"spam"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "alice", created["user"])
	assert.Equal(t, "spam", created["reason"])
	assert.Equal(t, testNow.Format(time.RFC3339), created["time"])

	w = env.do(http.MethodGet, "/warnings/alice", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode(t, w)
	assert.EqualValues(t, 1, listed["total"])

	w = env.do(http.MethodDelete, "/warnings/alice", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["removed"])

	w = env.do(http.MethodDelete, "/warnings/alice", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecretRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/warnings/alice", ""},
		{http.MethodPost, "/warnings", `{"user":"alice","reason":"spam"}`},
		{http.MethodDelete, "/warnings/alice", ""},
		{http.MethodGet, "/settings/retention", ""},
	} {
		w := env.do(tc.method, tc.path, tc.body, false)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}

	r := httptest.NewRequest(http.MethodGet, "/warnings/alice", nil)
	r.Header.Set(APIKeyHeader, "wrong")
	w := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	n, err := env.svc.TotalWarnings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(Options{})
	SetupAPIRoutes(s, API{Moderation: moderation.NewService(moderation.ServiceOptions{Store: moderation.NewStore(moderation.NewMemBackend())})})

	r := httptest.NewRequest(http.MethodGet, "/warnings/alice", nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddWarningValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/warnings", `{"user":"alice","reason":"  "}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/warnings", `{"reason":"spam"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/warnings", `not json`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type downBackend struct{ *moderation.MemBackend }

func (downBackend) List(ctx context.Context, user string) ([]models.WarningRecord, error) {
	return nil, assert.AnError
}

func TestStoreFailureHidesDetails(t *testing.T) {
	env := newTestEnv(t, downBackend{moderation.NewMemBackend()})

	w := env.do(http.MethodGet, "/warnings/alice", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRetentionSettings(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/settings/retention", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 30, decode(t, w)["autoclear_days"])

	w = env.do(http.MethodPut, "/settings/retention", `{"autoclear_days":0,"notify_autoclear":true}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/settings/retention", `{"autoclear_days":7,"notify_autoclear":false}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RetentionPolicy{MaxAgeDays: 7}, env.policy.Get())
}

func TestPublicRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/status", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = env.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/nope", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPatch, "/api/health", "", false)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(Options{RequestsPerSecond: 0.001, Burst: 2})
	SetupAPIRoutes(s, API{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestEventFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.hub.Run(ctx)

	ts := httptest.NewServer(env.server.Engine())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header := http.Header{}
	header.Set(APIKeyHeader, testSecret)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.hub.Publish(ctx, moderation.Event{Kind: moderation.EventWarningAdded, User: "alice", Count: 1, At: testNow})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev moderation.Event
	require.NoError(t, json.NewDecoder(bytes.NewReader(msg)).Decode(&ev))
	assert.Equal(t, moderation.EventWarningAdded, ev.Kind)
	assert.Equal(t, "alice", ev.User)
}

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{moderation.ErrNotFound, http.StatusNotFound},
		{moderation.ErrUnauthorized, http.StatusForbidden},
		{fmt.Errorf("%w: empty reason", moderation.ErrInvalidArgument), http.StatusBadRequest},
		{&moderation.StoreError{Op: "list", User: "alice", Err: assert.AnError}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/warnings/alice", nil)
		writeError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}
