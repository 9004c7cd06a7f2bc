package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminMiddleware "github.com/maumercado/localtaskd/internal/admin/middleware"
	"github.com/maumercado/localtaskd/internal/scheduler"
	"github.com/maumercado/localtaskd/internal/task"
)

type fakeScheduler struct {
	available int
	queueLen  int
	running   int
	snapshot  []scheduler.TaskInfo
}

func (f *fakeScheduler) AvailableCores() int                { return f.available }
func (f *fakeScheduler) QueueLen() int                      { return f.queueLen }
func (f *fakeScheduler) RunningCount() int                  { return f.running }
func (f *fakeScheduler) Snapshot() []scheduler.TaskInfo      { return f.snapshot }

func TestAdminHealth(t *testing.T) {
	s := NewServer(&fakeScheduler{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminTasks(t *testing.T) {
	fs := &fakeScheduler{
		available: 1,
		queueLen:  1,
		running:   1,
		snapshot: []scheduler.TaskInfo{
			{ID: "a", Status: task.StatusRunning, Cores: 1},
			{ID: "b", Status: task.StatusSubmitted, Cores: 1, Dependencies: []string{"a"}},
		},
	}
	s := NewServer(fs, Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin/tasks", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["available_cores"])
	tasks := body["tasks"].([]interface{})
	assert.Len(t, tasks, 2)
}

func TestAdminMetricsEndpoint(t *testing.T) {
	s := NewServer(&fakeScheduler{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthRejectsWithoutToken(t *testing.T) {
	s := NewServer(&fakeScheduler{}, Config{Auth: adminMiddleware.AuthConfig{Enabled: true, JWTSecret: "secret"}})

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
