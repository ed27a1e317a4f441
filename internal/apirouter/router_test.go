package apirouter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/workerctl/internal/apirouter"
	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/hookdeck/workerctl/internal/messagerouter"
	"github.com/hookdeck/workerctl/internal/status"
	"github.com/hookdeck/workerctl/internal/supervisor"
	"github.com/hookdeck/workerctl/internal/util/testutil"
	"github.com/hookdeck/workerctl/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseAPIPath = "/api/v1"

// flakySink fails every append while fail is set.
type flakySink struct {
	logsink.Sink
	fail atomic.Bool
}

func (s *flakySink) Append(ctx context.Context, name, line string) error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.Sink.Append(ctx, name, line)
}

type testEnv struct {
	router   http.Handler
	registry *worker.Registry
	sink     *flakySink
	health   *supervisor.HealthTracker
	apiKey   string
}

func setupTestRouter(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := testutil.CreateTestLogger(t)
	sink := &flakySink{Sink: logsink.NewMemorySink()}

	ctx, cancel := context.WithCancel(context.Background())
	registry := worker.NewRegistry(ctx, sink, logger)
	t.Cleanup(func() {
		cancel()
		_ = registry.Wait(context.Background())
	})

	health := supervisor.NewHealthTracker()
	health.MarkHealthy("http-server")

	router := apirouter.NewRouter(
		apirouter.RouterConfig{APIKey: apiKey},
		logger,
		registry,
		sink,
		messagerouter.New(registry, logger),
		status.NewReporter(registry),
		health,
	)
	return &testEnv{
		router:   router,
		registry: registry,
		sink:     sink,
		health:   health,
		apiKey:   apiKey,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, baseAPIPath+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestWorkerLifecycle(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(t, http.MethodPost, "/workers", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[worker.Info](t, w)
	assert.Equal(t, "Thread-1", first.Name)
	assert.True(t, first.Running)

	w = env.do(t, http.MethodPost, "/workers", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Thread-2", decode[worker.Info](t, w).Name)

	w = env.do(t, http.MethodGet, "/workers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[apirouter.StatusResponse](t, w)
	assert.Equal(t, []string{"Thread-1", "Thread-2"}, report.Names)
	assert.Equal(t, []bool{true, true}, report.Running)
	assert.Equal(t, []string{"Thread-1", "Thread-2"}, report.Active)

	w = env.do(t, http.MethodPost, "/messages", map[string]string{"target": "all", "message": "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[messagerouter.Result](t, w)
	assert.Equal(t, []string{"Thread-1", "Thread-2"}, result.Delivered)

	w = env.do(t, http.MethodPost, "/workers/stop-latest", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	stopped := decode[apirouter.StopResponse](t, w)
	require.NotNil(t, stopped.Name)
	assert.Equal(t, "Thread-2", *stopped.Name)

	require.Eventually(t, func() bool {
		return env.registry.Len() == 1
	}, testutil.WaitTimeout, 5*time.Millisecond)

	w = env.do(t, http.MethodGet, "/workers", nil)
	report = decode[apirouter.StatusResponse](t, w)
	assert.Equal(t, []string{"Thread-1"}, report.Names)
	require.Len(t, report.Stopped, 1)
	assert.Equal(t, "Thread-2", report.Stopped[0].Name)

	w = env.do(t, http.MethodGet, "/workers/Thread-2/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	log := decode[apirouter.LogResponse](t, w)
	require.Len(t, log.Lines, 3)
	assert.True(t, strings.HasPrefix(log.Lines[0], "Thread Thread-2 started at "))
	assert.True(t, strings.HasPrefix(log.Lines[1], "Message: hi at "))
	assert.True(t, strings.HasPrefix(log.Lines[2], "Thread Thread-2 stopped at "))
}

func TestWorkerHandlers_Retrieve(t *testing.T) {
	env := setupTestRouter(t, "")
	env.do(t, http.MethodPost, "/workers", nil)

	w := env.do(t, http.MethodGet, "/workers/Thread-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Thread-1", decode[worker.Info](t, w).Name)

	w = env.do(t, http.MethodGet, "/workers/Thread-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[apirouter.ErrorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.Equal(t, "worker not found", body.Message)
}

func TestWorkerHandlers_Stop(t *testing.T) {
	env := setupTestRouter(t, "")
	env.do(t, http.MethodPost, "/workers", nil)
	env.do(t, http.MethodPost, "/workers", nil)

	w := env.do(t, http.MethodPost, "/workers/Thread-1/stop", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		_, ok := env.registry.FindByName("Thread-1")
		return !ok
	}, testutil.WaitTimeout, 5*time.Millisecond)

	w = env.do(t, http.MethodPost, "/workers/Thread-1/stop", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkerHandlers_StopLatestEmpty(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(t, http.MethodPost, "/workers/stop-latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name": null}`, w.Body.String())
}

func TestWorkerHandlers_StopAll(t *testing.T) {
	env := setupTestRouter(t, "")
	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/workers", nil)
	}

	w := env.do(t, http.MethodPost, "/workers/stop-all", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 3, decode[apirouter.StopAllResponse](t, w).Count)

	require.Eventually(t, func() bool {
		return env.registry.Len() == 0
	}, testutil.WaitTimeout, 5*time.Millisecond)

	w = env.do(t, http.MethodPost, "/workers/stop-all", nil)
	assert.Equal(t, 0, decode[apirouter.StopAllResponse](t, w).Count)
}

func TestWorkerHandlers_LogNotFound(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(t, http.MethodGet, "/workers/Thread-1/log", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkerHandlers_CreateAfterShutdown(t *testing.T) {
	env := setupTestRouter(t, "")
	require.NoError(t, env.registry.Shutdown(context.Background()))

	w := env.do(t, http.MethodPost, "/workers", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMessageHandlers_Send(t *testing.T) {
	env := setupTestRouter(t, "")
	env.do(t, http.MethodPost, "/workers", nil)
	env.do(t, http.MethodPost, "/workers", nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "named target",
			body:       map[string]string{"target": "Thread-2", "message": "only you"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "blank message",
			body:       map[string]string{"target": "all", "message": "   "},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing message",
			body:       map[string]string{"target": "all"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown target",
			body:       map[string]string{"target": "Thread-7", "message": "hello"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid json",
			body:       `{"target":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/messages", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w := env.do(t, http.MethodGet, "/workers/Thread-1/log", nil)
	assert.Len(t, decode[apirouter.LogResponse](t, w).Lines, 1)
	w = env.do(t, http.MethodGet, "/workers/Thread-2/log", nil)
	assert.Len(t, decode[apirouter.LogResponse](t, w).Lines, 2)
}

func TestMessageHandlers_MissingMessageListsField(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do(t, http.MethodPost, "/messages", map[string]string{"target": "all"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation error", body.Message)
	assert.Contains(t, body.Data, "message is required")
}

func TestMessageHandlers_LogWriteFailure(t *testing.T) {
	env := setupTestRouter(t, "")
	env.do(t, http.MethodPost, "/workers", nil)

	env.sink.fail.Store(true)
	defer env.sink.fail.Store(false)

	w := env.do(t, http.MethodPost, "/messages", map[string]string{"target": "all", "message": "hi"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Message string               `json:"message"`
		Data    messagerouter.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed to write message", body.Message)
	assert.Equal(t, []string{"Thread-1"}, body.Data.Failed)
}

func TestHealthz(t *testing.T) {
	env := setupTestRouter(t, "")

	for _, path := range []string{"/healthz", baseAPIPath + "/healthz"} {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	env.health.MarkFailed("http-server")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
