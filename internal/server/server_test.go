package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/newsdesk/internal/pipeline"
	"github.com/jonathan/newsdesk/internal/scheduler"
	"github.com/jonathan/newsdesk/internal/server/ratelimit"
	"github.com/jonathan/newsdesk/internal/types"
)

// fakeTrigger uses function fields so each test sets only what it needs.
type fakeTrigger struct {
	TriggerFunc func() error
	last        *pipeline.RunReport
	lastErr     error
	running     bool
	next        []time.Time
	triggered   int
}

func (f *fakeTrigger) Trigger() error {
	f.triggered++
	if f.TriggerFunc != nil {
		return f.TriggerFunc()
	}
	return nil
}

func (f *fakeTrigger) LastRun() (*pipeline.RunReport, error) { return f.last, f.lastErr }
func (f *fakeTrigger) Running() bool                         { return f.running }
func (f *fakeTrigger) NextRuns() []time.Time                 { return f.next }

type fakeStore struct {
	drafts    []types.Article
	err       error
	lastLimit int
}

func (f *fakeStore) InsertDraft(context.Context, *types.Article) error   { return nil }
func (f *fakeStore) SourceURLExists(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) Close() error                                        { return nil }

func (f *fakeStore) ListDrafts(_ context.Context, limit int) ([]types.Article, error) {
	f.lastLimit = limit
	return f.drafts, f.err
}

func disabledLimits() *ratelimit.Config {
	return &ratelimit.Config{Enabled: false}
}

func newTestServer(t *testing.T, trigger RunTrigger, store *fakeStore, limits *ratelimit.Config) *Server {
	t.Helper()
	if limits == nil {
		limits = disabledLimits()
	}
	var s *Server
	if store == nil {
		s = New(Config{RateLimit: limits}, trigger, nil, nil)
	} else {
		s = New(Config{RateLimit: limits}, trigger, store, nil)
	}
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleRun_Accepted(t *testing.T) {
	trigger := &fakeTrigger{}
	s := newTestServer(t, trigger, nil, nil)

	rec := do(t, s, http.MethodPost, "/run")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "accepted"}, decode[map[string]string](t, rec))
	assert.Equal(t, 1, trigger.triggered)
}

func TestHandleRun_ConflictWhenBusy(t *testing.T) {
	trigger := &fakeTrigger{TriggerFunc: func() error { return scheduler.ErrRunInProgress }}
	s := newTestServer(t, trigger, nil, nil)

	rec := do(t, s, http.MethodPost, "/run")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, scheduler.ErrRunInProgress.Error(), decode[map[string]string](t, rec)["error"])
}

func TestHandleRun_LockFailure(t *testing.T) {
	trigger := &fakeTrigger{TriggerFunc: func() error { return errors.New("acquire run lock: dial tcp: refused") }}
	s := newTestServer(t, trigger, nil, nil)

	rec := do(t, s, http.MethodPost, "/run")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRun_WrongMethod(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, nil, nil)

	rec := do(t, s, http.MethodGet, "/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	next := []time.Time{
		time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	s := newTestServer(t, &fakeTrigger{running: true, next: next}, nil, nil)

	rec := do(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Running)
	require.Len(t, body.NextRuns, 2)
	assert.True(t, next[0].Equal(body.NextRuns[0]))
}

func TestHandleHealth_NoSchedules(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, nil, nil)

	rec := do(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"next_runs":[]`)
}

func TestHandleLastRun(t *testing.T) {
	t.Run("no run yet", func(t *testing.T) {
		s := newTestServer(t, &fakeTrigger{}, nil, nil)
		rec := do(t, s, http.MethodGet, "/runs/last")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "run not found", decode[map[string]string](t, rec)["error"])
	})

	t.Run("successful run", func(t *testing.T) {
		report := &pipeline.RunReport{RunID: uuid.New(), Topics: []string{"technology"}, Persisted: 2}
		s := newTestServer(t, &fakeTrigger{last: report}, nil, nil)

		rec := do(t, s, http.MethodGet, "/runs/last")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[LastRunResponse](t, rec)
		require.NotNil(t, body.Report)
		assert.Equal(t, report.RunID, body.Report.RunID)
		assert.Equal(t, 2, body.Report.Persisted)
		assert.Empty(t, body.Error)
	})

	t.Run("interrupted run", func(t *testing.T) {
		trigger := &fakeTrigger{last: &pipeline.RunReport{}, lastErr: fmt.Errorf("run interrupted: %w", context.DeadlineExceeded)}
		s := newTestServer(t, trigger, nil, nil)

		rec := do(t, s, http.MethodGet, "/runs/last")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "run interrupted: context deadline exceeded", decode[LastRunResponse](t, rec).Error)
	})
}

func TestHandleListDrafts(t *testing.T) {
	drafts := []types.Article{
		{ID: uuid.New(), Title: "Grid storage doubles", Status: types.StatusDraft},
		{ID: uuid.New(), Title: "Chip exports slow", Status: types.StatusDraft},
	}

	tests := []struct {
		name       string
		target     string
		store      *fakeStore
		wantStatus int
		wantLimit  int
		wantCount  int
	}{
		{name: "default limit", target: "/drafts", store: &fakeStore{drafts: drafts}, wantStatus: http.StatusOK, wantLimit: 20, wantCount: 2},
		{name: "explicit limit", target: "/drafts?limit=5", store: &fakeStore{drafts: drafts}, wantStatus: http.StatusOK, wantLimit: 5, wantCount: 2},
		{name: "empty store", target: "/drafts", store: &fakeStore{}, wantStatus: http.StatusOK, wantLimit: 20},
		{name: "non numeric limit", target: "/drafts?limit=ten", store: &fakeStore{}, wantStatus: http.StatusBadRequest},
		{name: "zero limit", target: "/drafts?limit=0", store: &fakeStore{}, wantStatus: http.StatusBadRequest},
		{name: "store failure", target: "/drafts", store: &fakeStore{err: errors.New("connection reset")}, wantStatus: http.StatusInternalServerError, wantLimit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeTrigger{}, tt.store, nil)

			rec := do(t, s, http.MethodGet, tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, tt.store.lastLimit)
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decode[DraftsResponse](t, rec)
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Drafts, tt.wantCount)
		})
	}
}

func TestHandleListDrafts_EmptyEncodesArray(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, &fakeStore{}, nil)

	rec := do(t, s, http.MethodGet, "/drafts")
	assert.Contains(t, rec.Body.String(), `"drafts":[]`)
}

func TestHandleListDrafts_NoStore(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, nil, nil)

	rec := do(t, s, http.MethodGet, "/drafts")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit_RunEndpoint(t *testing.T) {
	limits := &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	}
	trigger := &fakeTrigger{}
	s := newTestServer(t, trigger, nil, limits)

	for i := 0; i < 2; i++ {
		rec := do(t, s, http.MethodPost, "/run")
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "6", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(t, s, http.MethodPost, "/run")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rec)["error"])
	assert.Equal(t, 2, trigger.triggered, "a throttled request must not reach the trigger")

	// health stays reachable
	rec = do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithCORS_Preflight(t *testing.T) {
	trigger := &fakeTrigger{}
	s := newTestServer(t, trigger, nil, nil)

	rec := do(t, s, http.MethodOptions, "/run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, trigger.triggered)
}

func TestWithLogging_RecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(Config{RateLimit: disabledLimits()}, &fakeTrigger{}, nil, zap.New(core))
	t.Cleanup(s.rateLimiter.Stop)

	do(t, s, http.MethodGet, "/runs/last")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/runs/last", fields["path"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
}

func TestExtractClientID(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", s.extractClientID(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", s.extractClientID(req))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{scheduler.ErrRunInProgress, http.StatusConflict},
		{fmt.Errorf("trigger: %w", scheduler.ErrRunInProgress), http.StatusConflict},
		{&ErrValidation{Field: "limit", Message: "bad"}, http.StatusBadRequest},
		{&ErrNotFound{Resource: "run"}, http.StatusNotFound},
		{errStoreUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestShutdown(t *testing.T) {
	s := newTestServer(t, &fakeTrigger{}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
