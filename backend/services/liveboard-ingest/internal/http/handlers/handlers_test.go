package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liveboard/backend/services/liveboard-ingest/internal/clients"
	"liveboard/backend/services/liveboard-ingest/internal/db"
	redisstore "liveboard/backend/services/liveboard-ingest/internal/redis"
	"liveboard/backend/services/liveboard-ingest/internal/repository"
	"liveboard/backend/services/liveboard-ingest/internal/service"
)

type stubIngester struct {
	result service.Result
	err    error
}

func (s stubIngester) Run(context.Context) (service.Result, error) {
	return s.result, s.err
}

func serveIngest(t *testing.T, ingester Ingester) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewIngestHandler(ingester, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/liveboard/scrape", nil))
	return rec
}

func TestIngestHandlerSuccess(t *testing.T) {
	rec := serveIngest(t, stubIngester{result: service.Result{Status: service.StatusSuccess, RowsInserted: 3}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"status": "success", "rows_inserted": float64(3)}, body)
}

func TestIngestHandlerNoData(t *testing.T) {
	rec := serveIngest(t, stubIngester{result: service.Result{Status: service.StatusNoData}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No departures found.", rec.Body.String())
}

func TestIngestHandlerFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
	}{
		{
			name: "configuration",
			err:  &db.ConfigurationError{Key: db.ConnectionStringKey},
			body: "Server misconfigured: missing SQL connection string.",
		},
		{
			name: "upstream",
			err:  &clients.UpstreamError{StatusCode: 503, Err: errors.New("Service Unavailable")},
			body: "API error: upstream status 503: Service Unavailable",
		},
		{
			name: "upstream without cause",
			err:  &clients.UpstreamError{StatusCode: 502},
			body: "API error: upstream status 502",
		},
		{
			name: "unsupported connection string",
			err:  &db.ConfigurationError{Key: db.ConnectionStringKey, Err: errors.New("db: unsupported DSN")},
			body: "Server misconfigured: unsupported SQL connection string.",
		},
		{
			name: "canceled between attempts",
			err:  fmt.Errorf("connect canceled after 2 attempts: %w", context.Canceled),
			body: "Internal error.",
		},
		{
			name: "connection",
			err:  &db.ConnectionUnavailableError{Attempts: 5, Err: errors.New("refused")},
			body: "SQL database unavailable after retries.",
		},
		{
			name: "transform",
			err:  &service.TransformError{Index: 4, Field: "time", Err: errors.New("value missing")},
			body: `Invalid upstream payload: departure 4: field "time": value missing`,
		},
		{
			name: "write",
			err:  &repository.WriteError{Batch: 2, Committed: 20, Err: errors.New("commit: deadlock detected")},
			body: "Insert error: commit: deadlock detected",
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			body: "Internal error.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveIngest(t, stubIngester{result: service.Result{Status: service.StatusFailed}, err: tc.err})
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
		})
	}
}

type stubRuns struct {
	result *service.Result
	err    error
	asked  string
}

func (s *stubRuns) LastRun(_ context.Context, station string) (*service.Result, error) {
	s.asked = station
	return s.result, s.err
}

func TestLastRunHandler(t *testing.T) {
	runs := &stubRuns{result: &service.Result{RunID: "run-9", Station: "Brugge", Status: service.StatusSuccess, RowsInserted: 8}}
	rec := httptest.NewRecorder()
	NewLastRunHandler(runs, "Brugge", zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/liveboard/runs/last", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Brugge", runs.asked)

	var got service.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-9", got.RunID)
	assert.Equal(t, 8, got.RowsInserted)
}

func TestLastRunHandlerErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{redisstore.ErrNoRun, http.StatusNotFound},
		{errors.New("i/o timeout"), http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		NewLastRunHandler(&stubRuns{err: tc.err}, "Brugge", zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.status, rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
