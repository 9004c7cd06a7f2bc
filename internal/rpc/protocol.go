// Package rpc implements the line-delimited JSON-over-TCP protocol that
// clients use to submit, cancel, and poll tasks on the scheduler.
package rpc

import "github.com/maumercado/localtaskd/internal/task"

// Message type tags, shared by requests and responses.
const (
	TypeSubmitTask = "submit-task"
	TypeCancelTask = "cancel-task"
	TypeGetStatus  = "get-status"
	TypeOK         = "ok"
	TypeStatus     = "status"
	TypeError      = "error"
)

// Request is the union of every request shape the server accepts,
// discriminated by Type. Fields unused by a given Type are left zero.
type Request struct {
	Type         string            `json:"type"`
	ID           string            `json:"id"`
	Script       string            `json:"script,omitempty"`
	WorkingDir   string            `json:"working_dir,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Resources    *task.Resources   `json:"resources,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
}

// Response is the union of every response shape the server sends.
type Response struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func okResponse() Response {
	return Response{Type: TypeOK}
}

func statusResponse(s task.TaskStatus) Response {
	return Response{Type: TypeStatus, Status: s.String()}
}

func errorResponse(msg string) Response {
	return Response{Type: TypeError, Error: msg}
}
