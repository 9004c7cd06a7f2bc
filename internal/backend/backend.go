// Package backend implements the client-side facade a workflow engine
// uses to talk to the local task-execution backend: a persistent
// target-name to task-id mapping layered over the TCP client.
package backend

import (
	"context"

	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/task"
)

// Status is the backend-neutral status set the facade exposes to its
// caller. It deliberately collapses every terminal state back to
// Unknown: the facade does not distinguish a task that finished from
// one it has never heard of.
type Status int

const (
	StatusUnknown Status = iota
	StatusSubmitted
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Client is the subset of pkg/client.Client the facade depends on,
// narrowed so this package is testable against a fake.
type Client interface {
	Submit(ctx context.Context, script, workingDir string, env map[string]string, resources task.Resources, dependencies []string) (string, error)
	Cancel(ctx context.Context, id string) error
	Status(ctx context.Context, id string) (task.TaskStatus, error)
	Close() error
}

// Target is the fully-materialized description of one workflow target
// this facade can submit. Workflow definition, target-graph
// construction, and option resolution all stay a collaborator concern;
// the facade only needs the pieces a Task record requires.
type Target struct {
	Name       string
	Script     string
	WorkingDir string
	Env        map[string]string
	Resources  task.Resources
}

// Backend is the facade: it owns a Client connection and a persistent
// target-name to task-id mapping on disk, translating named-target
// operations into task-id RPC calls.
type Backend struct {
	client  Client
	tracked *trackedMap
}

// New constructs a Backend around an already-connected Client, loading
// (but not yet persisting) the tracked-ids file at trackedPath,
// conventionally ".gwf/local-backend-tracked.json".
func New(client Client, trackedPath string) (*Backend, error) {
	tracked, err := loadTrackedMap(trackedPath)
	if err != nil {
		return nil, err
	}
	return &Backend{client: client, tracked: tracked}, nil
}

// GetTaskID returns the task id recorded for target name, if any.
func (b *Backend) GetTaskID(name string) (string, bool) {
	return b.tracked.get(name)
}

// Submit resolves deps to task ids via the tracked mapping, injects
// GWF_TARGET_NAME into the target's environment, applies the per-target
// resource defaults, and submits the task via the Client. The returned
// task id is recorded against target.Name.
func (b *Backend) Submit(ctx context.Context, target Target, deps []string) error {
	depIDs := make([]string, 0, len(deps))
	for _, dep := range deps {
		id, ok := b.tracked.get(dep)
		if !ok {
			return &DependencyError{Name: dep}
		}
		depIDs = append(depIDs, id)
	}

	env := make(map[string]string, len(target.Env)+1)
	for k, v := range target.Env {
		env[k] = v
	}
	env["GWF_TARGET_NAME"] = target.Name

	resources := target.Resources
	if resources.Cores <= 0 {
		resources = task.DefaultResources()
	}

	id, err := b.client.Submit(ctx, target.Script, target.WorkingDir, env, resources, depIDs)
	if err != nil {
		logger.WithTarget(target.Name).Warn().Err(err).Msg("submit rejected")
		return err
	}
	b.tracked.set(target.Name, id)
	logger.WithTarget(target.Name).Debug().Str("task_id", id).Msg("submitted")
	return nil
}

// Cancel cancels the task recorded for target name. It is a no-op if the
// target has no recorded task id.
func (b *Backend) Cancel(ctx context.Context, targetName string) error {
	id, ok := b.tracked.get(targetName)
	if !ok {
		return nil
	}
	logger.WithTarget(targetName).Debug().Msg("cancelling")
	return b.client.Cancel(ctx, id)
}

// Status returns the backend-neutral status of target name, collapsing
// every terminal state to StatusUnknown.
func (b *Backend) Status(ctx context.Context, targetName string) (Status, error) {
	id, ok := b.tracked.get(targetName)
	if !ok {
		return StatusUnknown, nil
	}

	s, err := b.client.Status(ctx, id)
	if err != nil {
		return StatusUnknown, err
	}

	switch s {
	case task.StatusSubmitted:
		return StatusSubmitted, nil
	case task.StatusRunning:
		return StatusRunning, nil
	default:
		return StatusUnknown, nil
	}
}

// Close flushes the tracked-ids mapping to disk and closes the
// underlying Client connection.
func (b *Backend) Close() error {
	if err := b.tracked.persist(); err != nil {
		return err
	}
	return b.client.Close()
}
