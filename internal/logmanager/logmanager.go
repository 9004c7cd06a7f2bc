// Package logmanager opens per-task stdout/stderr sinks for the executor
// to write to and for collaborators to read back.
package logmanager

import (
	"errors"
	"io"
)

// ErrNoLogFound is returned when a read is attempted against a log that
// doesn't exist.
var ErrNoLogFound = errors.New("no log found for task")

// LogManager opens per-task stdout/stderr streams. Implementations must
// make the returned handle safe to Close on every exit path; callers
// treat it as a scoped resource.
type LogManager interface {
	OpenStdout(taskID string, mode string) (io.ReadWriteCloser, error)
	OpenStderr(taskID string, mode string) (io.ReadWriteCloser, error)
}

// Mode constants accepted by Open{Stdout,Stderr}.
const (
	ModeWrite = "w"
	ModeRead  = "r"
)
