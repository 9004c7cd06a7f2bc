package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_String(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected string
	}{
		{StatusUnknown, "UNKNOWN"},
		{StatusSubmitted, "SUBMITTED"},
		{StatusRunning, "RUNNING"},
		{StatusCompleted, "COMPLETED"},
		{StatusFailed, "FAILED"},
		{StatusCancelled, "CANCELLED"},
		{TaskStatus(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	for _, name := range []string{"SUBMITTED", "RUNNING", "COMPLETED", "FAILED", "CANCELLED"} {
		assert.Equal(t, name, ParseTaskStatus(name).String())
	}
	assert.Equal(t, StatusUnknown, ParseTaskStatus("garbage"))
}

func TestTaskStatus_IsFailed(t *testing.T) {
	assert.True(t, StatusFailed.IsFailed())
	assert.True(t, StatusCancelled.IsFailed())
	assert.False(t, StatusCompleted.IsFailed())
	assert.False(t, StatusRunning.IsFailed())
}

func TestTaskStatus_IsFinished(t *testing.T) {
	for _, s := range []TaskStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, s.IsFinished())
	}
	for _, s := range []TaskStatus{StatusUnknown, StatusSubmitted, StatusRunning} {
		assert.False(t, s.IsFinished())
	}
}

func TestCanTransitionTo_SameIsNoop(t *testing.T) {
	for _, s := range []TaskStatus{StatusUnknown, StatusSubmitted, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, s.CanTransitionTo(s))
	}
}

func TestCanTransitionTo_TerminalIsAbsorbing(t *testing.T) {
	for _, from := range []TaskStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		for _, to := range []TaskStatus{StatusSubmitted, StatusRunning} {
			assert.False(t, from.CanTransitionTo(to))
		}
	}
}

func TestCanTransitionTo_Table(t *testing.T) {
	assert.True(t, StatusUnknown.CanTransitionTo(StatusSubmitted))
	assert.False(t, StatusUnknown.CanTransitionTo(StatusRunning))

	assert.True(t, StatusSubmitted.CanTransitionTo(StatusRunning))
	assert.True(t, StatusSubmitted.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusSubmitted.CanTransitionTo(StatusFailed))

	assert.True(t, StatusRunning.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusRunning.CanTransitionTo(StatusFailed))
	assert.True(t, StatusRunning.CanTransitionTo(StatusCancelled))
}
