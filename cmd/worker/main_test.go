package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dv00d00/expo-text-extractor/internal/metrics"
)

type stubDeps struct{ err error }

func (s stubDeps) Ping(ctx context.Context) error { return s.err }

type stubStats struct{}

func (stubStats) GetStatistics() (map[string]interface{}, error) {
	return map[string]interface{}{"queue": "textextract", "pending": 3}, nil
}

type stubOCR bool

func (s stubOCR) IsSupported() bool { return bool(s) }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	h := newHTTPHandler(metrics.NewRecorder(), stubDeps{}, stubStats{}, stubOCR(true))
	rec, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["supported"])

	h = newHTTPHandler(metrics.NewRecorder(), stubDeps{err: errors.New("redis down")}, stubStats{}, stubOCR(false))
	rec, body = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "redis down", body["error"])
}

func TestStatsAndMetrics(t *testing.T) {
	h := newHTTPHandler(metrics.NewRecorder(), stubDeps{}, stubStats{}, stubOCR(true))

	rec, body := get(t, h, "/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "textextract", body["queue"])
	assert.EqualValues(t, 3, body["pending"])

	rec, _ = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "textextractor_worker_jobs_active")
}
