// Package scheduler holds the dependency-aware, core-budgeted admission
// engine at the heart of the server. A single mutex guards all state;
// every exported operation is one complete atomic transition.
package scheduler

import (
	"runtime"
	"sync"
	"time"

	"github.com/maumercado/localtaskd/internal/executor"
	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/logmanager"
	"github.com/maumercado/localtaskd/internal/metrics"
	"github.com/maumercado/localtaskd/internal/task"
)

// pollInterval is how often ScheduleForever re-runs the admission scan.
const pollInterval = 100 * time.Millisecond

// StatusChange is published to an optional observer every time a task's
// status changes, for the admin/events surface to relay onward. It is
// never required for correctness of scheduling itself.
type StatusChange struct {
	TaskID string
	Status task.TaskStatus
}

// Scheduler tracks every submitted task's status, its place in the FIFO
// admission queue, its reverse dependency edges, its running Executor
// (if any), and the core budget. All mutations happen under mu.
type Scheduler struct {
	mu sync.Mutex

	maxCores       int
	availableCores int
	killTimeout    time.Duration

	logManager logmanager.LogManager

	tasks        map[string]*task.Task
	status       map[string]task.TaskStatus
	dependents   map[string]map[string]struct{}
	executors    map[string]*executor.Executor
	runningSince map[string]time.Time

	queue []string // ids currently SUBMITTED, in insertion order

	shutdown bool
	stopCh   chan struct{}
	wg       sync.WaitGroup

	onChange func(StatusChange)
}

// Option configures optional Scheduler behavior at construction time.
type Option func(*Scheduler)

// WithOnChange registers a callback invoked (outside the scheduler's
// mutex) every time a task transitions to a new status. It is used to
// feed the admin event bus; scheduling correctness never depends on it.
func WithOnChange(fn func(StatusChange)) Option {
	return func(s *Scheduler) { s.onChange = fn }
}

// New creates a Scheduler with the given core budget and kill timeout.
// maxCores <= 0 defaults to runtime.NumCPU().
func New(maxCores int, killTimeout time.Duration, logManager logmanager.LogManager, opts ...Option) *Scheduler {
	if maxCores <= 0 {
		maxCores = runtime.NumCPU()
	}
	if killTimeout <= 0 {
		killTimeout = 10 * time.Second
	}
	s := &Scheduler{
		maxCores:       maxCores,
		availableCores: maxCores,
		killTimeout:    killTimeout,
		logManager:     logManager,
		tasks:          make(map[string]*task.Task),
		status:         make(map[string]task.TaskStatus),
		dependents:     make(map[string]map[string]struct{}),
		executors:      make(map[string]*executor.Executor),
		runningSince:   make(map[string]time.Time),
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnqueueTask registers t, transitioning it UNKNOWN->SUBMITTED. Every
// dependency must already be known; an unknown dependency fails the
// whole submission with a BackendError and t is not registered. If any
// dependency is already in a failed terminal state, t is immediately
// transitioned straight to FAILED (and that propagates to t's own
// dependents, of which there are none yet).
func (s *Scheduler) EnqueueTask(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dep := range t.Dependencies {
		if _, ok := s.status[dep]; !ok {
			return NewUnknownDependencyError(dep)
		}
	}

	s.tasks[t.ID] = t
	s.status[t.ID] = task.StatusSubmitted
	s.queue = append(s.queue, t.ID)
	metrics.RecordTaskSubmission()

	for _, dep := range t.Dependencies {
		if s.dependents[dep] == nil {
			s.dependents[dep] = make(map[string]struct{})
		}
		s.dependents[dep][t.ID] = struct{}{}
	}

	s.notify(t.ID, task.StatusSubmitted)
	s.updateGaugesLocked()

	failedDep := false
	for _, dep := range t.Dependencies {
		if s.status[dep].IsFailed() {
			failedDep = true
			break
		}
	}
	if failedDep {
		s.setStatusLocked(t.ID, task.StatusFailed)
	}

	return nil
}

// CancelTask transitions id to CANCELLED using the same state-machine
// rules as any other status update. Cancelling an unknown id is a
// no-op: UNKNOWN is reserved for ids truly never seen.
func (s *Scheduler) CancelTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[id]; !ok {
		return
	}
	s.setStatusLocked(id, task.StatusCancelled)
}

// GetStatus returns the current status of id, or StatusUnknown if id has
// never been submitted.
func (s *Scheduler) GetStatus(id string) task.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	if !ok {
		return task.StatusUnknown
	}
	return st
}

// SetStatus is the callback executors use to report progress. It runs
// the same state-machine transition as every other status source.
func (s *Scheduler) SetStatus(id string, newStatus task.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(id, newStatus)
}

// setStatusLocked performs one transition and, if it lands on a failed
// terminal state, propagates FAILED to every transitive dependent using
// an explicit work-list so the recursion never re-enters the mutex.
func (s *Scheduler) setStatusLocked(id string, newStatus task.TaskStatus) {
	current, ok := s.status[id]
	if !ok {
		return
	}
	if current == newStatus {
		return
	}
	if !current.CanTransitionTo(newStatus) {
		logger.Warn().
			Str("task_id", id).
			Str("from", current.String()).
			Str("to", newStatus.String()).
			Msg("rejected invalid task status transition")
		return
	}

	s.applyTransition(id, current, newStatus)
	s.status[id] = newStatus
	s.notify(id, newStatus)

	if !newStatus.IsFailed() {
		s.updateGaugesLocked()
		return
	}

	workList := make([]string, 0, len(s.dependents[id]))
	for dep := range s.dependents[id] {
		workList = append(workList, dep)
	}
	for len(workList) > 0 {
		next := workList[0]
		workList = workList[1:]

		cur, ok := s.status[next]
		if !ok || cur.IsFinished() {
			continue
		}
		s.applyTransition(next, cur, task.StatusFailed)
		s.status[next] = task.StatusFailed
		s.notify(next, task.StatusFailed)

		for dep := range s.dependents[next] {
			workList = append(workList, dep)
		}
	}

	s.updateGaugesLocked()
}

// updateGaugesLocked refreshes the scheduler's point-in-time Prometheus
// gauges. Called by EnqueueTask on submission and at the end of every
// setStatusLocked call that applies a transition, which covers
// cancellation, executor callbacks, and admission.
func (s *Scheduler) updateGaugesLocked() {
	metrics.SetQueueDepth(float64(len(s.queue)))
	metrics.SetExecutorsActive(float64(len(s.executors)))
	metrics.SetAvailableCores(float64(s.availableCores))
}

// applyTransition performs the side effects for exactly one edge of the
// state machine table: queue membership, core accounting, and executor
// lifecycle. It does not write s.status itself; the caller does, so that
// failure-propagation and the primary transition share one code path.
func (s *Scheduler) applyTransition(id string, from, to task.TaskStatus) {
	switch {
	case from == task.StatusSubmitted && to == task.StatusRunning:
		s.removeFromQueue(id)
		s.availableCores -= s.tasks[id].Resources.Cores
		s.runningSince[id] = time.Now()
		s.startExecutor(id)

	case from == task.StatusSubmitted && (to == task.StatusCancelled || to == task.StatusFailed):
		s.removeFromQueue(id)
		metrics.RecordTaskFinished(to.String(), 0)

	case from == task.StatusRunning && to == task.StatusCancelled:
		if ex, ok := s.executors[id]; ok {
			ex.Cancel()
		}
		delete(s.executors, id)
		s.availableCores += s.tasks[id].Resources.Cores
		metrics.RecordTaskFinished(to.String(), s.runningDurationLocked(id))

	case from == task.StatusRunning && (to == task.StatusCompleted || to == task.StatusFailed):
		delete(s.executors, id)
		s.availableCores += s.tasks[id].Resources.Cores
		metrics.RecordTaskFinished(to.String(), s.runningDurationLocked(id))
	}
}

// runningDurationLocked returns how long id spent RUNNING, using the
// timestamp recorded when it was admitted, and clears that bookkeeping
// entry. Called once per task, exactly when it leaves RUNNING.
func (s *Scheduler) runningDurationLocked(id string) float64 {
	started, ok := s.runningSince[id]
	delete(s.runningSince, id)
	if !ok {
		return 0
	}
	return time.Since(started).Seconds()
}

func (s *Scheduler) removeFromQueue(id string) {
	for i, qid := range s.queue {
		if qid == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) startExecutor(id string) {
	t := s.tasks[id]
	ex := executor.New(t, s.logManager, s.killTimeout, s.SetStatus)
	s.executors[id] = ex
	ex.Execute()
}

func (s *Scheduler) notify(id string, status task.TaskStatus) {
	if s.onChange == nil {
		return
	}
	change := StatusChange{TaskID: id, Status: status}
	go s.onChange(change)
}

// ScheduleOnce performs one admission scan: it walks the FIFO queue once
// with a local core counter, collects the set of tasks that should
// become RUNNING or FAILED, and applies those transitions at the end of
// the scan. A ready task requiring more cores than are currently free
// ends the scan for this cycle, without reordering the queue: an earlier
// oversized task blocks later, smaller ones indefinitely; this is
// accepted, documented head-of-line behavior.
func (s *Scheduler) ScheduleOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := s.availableCores
	var toRun, toFail []string

	for _, id := range s.queue {
		if available == 0 {
			break
		}
		t := s.tasks[id]

		depFailed := false
		depsReady := true
		for _, dep := range t.Dependencies {
			depStatus := s.status[dep]
			if depStatus.IsFailed() {
				depFailed = true
				break
			}
			if depStatus != task.StatusCompleted {
				depsReady = false
			}
		}

		if !depFailed && depsReady && t.Resources.Cores > available {
			break
		}

		switch {
		case depFailed:
			toFail = append(toFail, id)
		case depsReady && t.Resources.Cores <= available:
			available -= t.Resources.Cores
			toRun = append(toRun, id)
		}
	}

	for _, id := range toFail {
		s.setStatusLocked(id, task.StatusFailed)
	}
	for _, id := range toRun {
		s.setStatusLocked(id, task.StatusRunning)
	}
}

// ScheduleForever runs ScheduleOnce on a fixed interval until Shutdown is
// called. It is meant to run on its own goroutine for the life of the
// server process.
func (s *Scheduler) ScheduleForever() {
	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ScheduleOnce()
		}
	}
}

// Shutdown stops ScheduleForever's loop at its next iteration. Running
// executors are left to finish on their own; call Wait to block until
// they have all exited.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	s.mu.Unlock()
	close(s.stopCh)
}

// Wait blocks until the scheduler loop has exited and no executors
// remain running.
func (s *Scheduler) Wait() {
	s.wg.Wait()
	for {
		s.mu.Lock()
		n := len(s.executors)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(pollInterval)
	}
}

// AvailableCores returns the current free core count, mostly useful for
// tests and the admin introspection surface.
func (s *Scheduler) AvailableCores() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableCores
}

// QueueLen returns the number of tasks currently SUBMITTED.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// RunningCount returns the number of tasks currently RUNNING.
func (s *Scheduler) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executors)
}

// TaskInfo is a read-only snapshot of one task's status, for the admin
// introspection surface. It is never used by scheduling decisions.
type TaskInfo struct {
	ID           string
	Status       task.TaskStatus
	Cores        int
	Dependencies []string
}

// Snapshot returns a point-in-time copy of every task the scheduler has
// ever seen, for the read-only admin HTTP surface. It never mutates
// scheduler state.
func (s *Scheduler) Snapshot() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.status))
	for id, st := range s.status {
		info := TaskInfo{ID: id, Status: st}
		if t, ok := s.tasks[id]; ok {
			info.Cores = t.Resources.Cores
			info.Dependencies = t.Dependencies
		}
		out = append(out, info)
	}
	return out
}
