package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockLogger struct{}

func (m *mockLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Close()                                                  {}

type mockPipeline struct {
	last *models.RunReport
}

func (m *mockPipeline) Run(_ context.Context) *models.RunReport { return m.last }
func (m *mockPipeline) FetchAndSave(_ context.Context, _ models.Category) (int, error) {
	return 0, nil
}
func (m *mockPipeline) LastReport() *models.RunReport { return m.last }

type mockScheduler struct {
	running  bool
	triggers int
}

func (m *mockScheduler) Init(_ context.Context) {}
func (m *mockScheduler) Stop()                  {}
func (m *mockScheduler) Running() bool          { return m.running }
func (m *mockScheduler) Trigger() bool {
	if m.running {
		return false
	}
	m.triggers++
	m.running = true
	return true
}

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache                     { return &mockCache{data: make(map[string][]byte)} }
func (m *mockCache) Get(key string) ([]byte, bool) { v, ok := m.data[key]; return v, ok }
func (m *mockCache) Set(key string, value []byte)  { m.data[key] = value }

// --- helpers ---

func usersTable() *models.Table {
	table := models.NewTable("id", "first_name", "charged_at")
	table.Append(map[string]string{"id": "1", "first_name": "Michelle", "charged_at": "2024-05-01T10:30"})
	table.Append(map[string]string{"id": "2", "first_name": "Peggy", "charged_at": "2024-05-01T10:30"})
	return table
}

func newTestController(pipeline *mockPipeline, sink *testutil.MockSink, sched *mockScheduler, cache *mockCache) *ApiController {
	return NewApiController(&mockLogger{}, pipeline, sink, sched, cache)
}

// --- GetSnapshot tests ---

func TestGetSnapshot_ReturnsTable(t *testing.T) {
	sink := &testutil.MockSink{Tables: map[models.Category]*models.Table{models.CategoryUsers: usersTable()}}
	pipeline := &mockPipeline{last: &models.RunReport{ID: "run-1"}}
	cache := newMockCache()
	ac := newTestController(pipeline, sink, &mockScheduler{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/snapshot?category=users", nil)
	rr := httptest.NewRecorder()
	ac.GetSnapshot(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "users", resp.Category)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"id", "first_name", "charged_at"}, resp.Header)
	assert.Equal(t, "Peggy", resp.Rows[1]["first_name"])

	_, cached := cache.data["snapshot:users:run-1"]
	assert.True(t, cached)
}

func TestGetSnapshot_ServedFromCache(t *testing.T) {
	cache := newMockCache()
	cache.data["snapshot:tracks:run-1"] = []byte(`{"cached":true}`)
	sink := &testutil.MockSink{Errors: map[models.Category]error{models.CategoryTracks: errors.New("must not load")}}
	ac := newTestController(&mockPipeline{last: &models.RunReport{ID: "run-1"}}, sink, &mockScheduler{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/snapshot?category=tracks", nil)
	rr := httptest.NewRecorder()
	ac.GetSnapshot(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"cached":true}`, rr.Body.String())
}

func TestGetSnapshot_NewRunBypassesOldCacheEntry(t *testing.T) {
	cache := newMockCache()
	cache.data["snapshot:users:run-1"] = []byte(`{"stale":true}`)
	sink := &testutil.MockSink{Tables: map[models.Category]*models.Table{models.CategoryUsers: usersTable()}}
	ac := newTestController(&mockPipeline{last: &models.RunReport{ID: "run-2"}}, sink, &mockScheduler{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/snapshot?category=users", nil)
	rr := httptest.NewRecorder()
	ac.GetSnapshot(rr, req)

	assert.NotContains(t, rr.Body.String(), "stale")
	assert.Contains(t, cache.data, "snapshot:users:run-2")
}

func TestGetSnapshot_UnknownCategory(t *testing.T) {
	ac := newTestController(&mockPipeline{}, &testutil.MockSink{}, &mockScheduler{}, newMockCache())

	for _, target := range []string{"/snapshot", "/snapshot?category=albums"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		ac.GetSnapshot(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestGetSnapshot_LoadError(t *testing.T) {
	sink := &testutil.MockSink{Errors: map[models.Category]error{models.CategoryUsers: errors.New("corrupt")}}
	cache := newMockCache()
	ac := newTestController(&mockPipeline{}, sink, &mockScheduler{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/snapshot?category=users", nil)
	rr := httptest.NewRecorder()
	ac.GetSnapshot(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, cache.data)
}

func TestGetSnapshot_EmptySnapshot(t *testing.T) {
	ac := newTestController(&mockPipeline{}, &testutil.MockSink{}, &mockScheduler{}, newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/snapshot?category=listen_history", nil)
	rr := httptest.NewRecorder()
	ac.GetSnapshot(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.RunID)
}

// --- TriggerRun tests ---

func TestTriggerRun_Accepted(t *testing.T) {
	sched := &mockScheduler{}
	ac := newTestController(&mockPipeline{}, &testutil.MockSink{}, sched, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rr := httptest.NewRecorder()
	ac.TriggerRun(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rr.Body.String())
	assert.Equal(t, 1, sched.triggers)
}

func TestTriggerRun_Conflict(t *testing.T) {
	sched := &mockScheduler{running: true}
	ac := newTestController(&mockPipeline{}, &testutil.MockSink{}, sched, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rr := httptest.NewRecorder()
	ac.TriggerRun(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, sched.triggers)
}

// --- GetLastRun tests ---

func TestGetLastRun(t *testing.T) {
	report := &models.RunReport{
		ID:         "run-9",
		StartedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC),
		Results: []*models.CategoryResult{
			{Name: "tracks", Fetched: 3, Cleaned: 2, Saved: 2, Inserted: 2},
			{Name: "users", Error: "disk full"},
		},
	}
	ac := newTestController(&mockPipeline{last: report}, &testutil.MockSink{}, &mockScheduler{}, newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/runs/last", nil)
	rr := httptest.NewRecorder()
	ac.GetLastRun(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "run-9", resp["id"])
	results := resp["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "disk full", results[1].(map[string]interface{})["error"])
}

func TestGetLastRun_NoRunYet(t *testing.T) {
	ac := newTestController(&mockPipeline{}, &testutil.MockSink{}, &mockScheduler{}, newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/runs/last", nil)
	rr := httptest.NewRecorder()
	ac.GetLastRun(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
