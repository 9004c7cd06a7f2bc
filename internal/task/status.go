package task

import "errors"

// TaskStatus is the current lifecycle state of a task as tracked by the
// scheduler. Unlike Task itself, status is not part of the immutable
// record; the scheduler keeps it in a separate map keyed by task id.
type TaskStatus int

const (
	StatusUnknown TaskStatus = iota
	StatusSubmitted
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ParseTaskStatus parses the wire-format status name back into a
// TaskStatus, defaulting to StatusUnknown for anything unrecognized.
func ParseTaskStatus(s string) TaskStatus {
	switch s {
	case "SUBMITTED":
		return StatusSubmitted
	case "RUNNING":
		return StatusRunning
	case "COMPLETED":
		return StatusCompleted
	case "FAILED":
		return StatusFailed
	case "CANCELLED":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// IsFailed reports whether s is one of the FAILED_STATES.
func (s TaskStatus) IsFailed() bool {
	return s == StatusFailed || s == StatusCancelled
}

// IsFinished reports whether s is one of the FINISHED_STATES.
func (s TaskStatus) IsFinished() bool {
	return s.IsFailed() || s == StatusCompleted
}

// ErrInvalidTransition names a transition the state machine doesn't
// allow. No function in this package returns it: CanTransitionTo reports
// validity as a bool, and the scheduler logs invalid transitions and
// treats them as no-ops.
var ErrInvalidTransition = errors.New("invalid task status transition")

// validTransitions enumerates the task status state machine. Transitions
// into a finished status from another finished status are never valid
// (terminal states are absorbing); "same -> same" is handled separately
// as a no-op, not listed here.
var validTransitions = map[TaskStatus][]TaskStatus{
	StatusUnknown:   {StatusSubmitted},
	StatusSubmitted: {StatusRunning, StatusCancelled, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the state machine allows moving from s
// to target. A transition to the same status is always permitted as a
// no-op.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	if s == target {
		return true
	}
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}
