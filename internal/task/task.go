// Package task defines the immutable Task record exchanged between the
// RPC surface, the scheduler, and the executor.
package task

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Resources describes the resource demand of a task. Cores is the only
// dimension the scheduler currently admits on.
type Resources struct {
	Cores int `json:"cores"`
}

// DefaultResources mirrors the backend's per-target option default: a
// task that doesn't specify resources gets one core.
func DefaultResources() Resources {
	return Resources{Cores: 1}
}

// Task is an immutable record of one submission. Nothing mutates a Task
// after construction; the scheduler tracks its status out-of-band.
type Task struct {
	ID           string            `json:"id"`
	Script       string            `json:"script"`
	WorkingDir   string            `json:"working_dir"`
	Env          map[string]string `json:"env,omitempty"`
	Resources    Resources         `json:"resources"`
	Dependencies []string          `json:"dependencies,omitempty"`
}

// NewID generates an opaque 128-bit task identifier rendered as a bare
// hex string (no dashes), matching the wire format's `<hex>` id.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// New constructs a Task, applying the default core count when the caller
// didn't specify one.
func New(id, script, workingDir string, env map[string]string, resources Resources, deps []string) *Task {
	if resources.Cores <= 0 {
		resources = DefaultResources()
	}
	return &Task{
		ID:           id,
		Script:       script,
		WorkingDir:   workingDir,
		Env:          env,
		Resources:    resources,
		Dependencies: deps,
	}
}

// ToJSON serializes the task to JSON.
func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// FromJSON deserializes a task from JSON.
func FromJSON(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
