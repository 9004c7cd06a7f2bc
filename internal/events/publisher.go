// Package events publishes task status changes onto a pub/sub bus so the
// admin websocket can relay them live. It is pure observability: nothing
// here is read back by the scheduler, and the bus holds no state the
// server depends on to recover.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType names a task status transition.
type EventType string

const (
	EventTaskSubmitted EventType = "task.submitted"
	EventTaskRunning    EventType = "task.running"
	EventTaskCompleted  EventType = "task.completed"
	EventTaskFailed     EventType = "task.failed"
	EventTaskCancelled  EventType = "task.cancelled"
)

// Event is one status-change notification.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates an Event stamped with the current time.
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ToJSON serializes the event to JSON.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event from JSON.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher defines the interface for event publishers.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error)
	Close() error
}

// TaskEventData builds the Data payload for a task status event.
func TaskEventData(taskID, status string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"task_id": taskID,
		"status":  status,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// EventTypeForStatus maps a task status name to its EventType, or "" if
// the status has no corresponding event (e.g. UNKNOWN).
func EventTypeForStatus(status string) EventType {
	switch status {
	case "SUBMITTED":
		return EventTaskSubmitted
	case "RUNNING":
		return EventTaskRunning
	case "COMPLETED":
		return EventTaskCompleted
	case "FAILED":
		return EventTaskFailed
	case "CANCELLED":
		return EventTaskCancelled
	default:
		return ""
	}
}
