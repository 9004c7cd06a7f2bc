package admin

import (
	"encoding/json"
	"net/http"

	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/scheduler"
)

// Scheduler is the subset of *scheduler.Scheduler the admin surface
// reads from. It is read-only by construction: nothing here can mutate
// scheduler state, keeping the RPC contract the only path that does.
type Scheduler interface {
	AvailableCores() int
	QueueLen() int
	RunningCount() int
	Snapshot() []scheduler.TaskInfo
}

type taskView struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Cores        int      `json:"cores"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// handleHealth responds to GET /admin/health with a simple liveness
// check: the process is up and serving HTTP. It does not query the
// scheduler.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// handleTasks responds to GET /admin/tasks with a snapshot of every
// task the scheduler has seen, for operator introspection.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	snapshot := s.scheduler.Snapshot()
	views := make([]taskView, 0, len(snapshot))
	for _, info := range snapshot {
		views = append(views, taskView{
			ID:           info.ID,
			Status:       info.Status.String(),
			Cores:        info.Cores,
			Dependencies: info.Dependencies,
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":           views,
		"available_cores": s.scheduler.AvailableCores(),
		"queue_depth":     s.scheduler.QueueLen(),
		"executors_active": s.scheduler.RunningCount(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode admin response")
	}
}
