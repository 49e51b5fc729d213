package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a run or task lifecycle notification.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated run ID.
	RunID string `json:"run_id,omitempty"`

	// Workflow is the workflow name, if applicable.
	Workflow string `json:"workflow,omitempty"`

	// Job is the job name, if applicable.
	Job string `json:"job,omitempty"`

	// Task is the task name, if applicable.
	Task string `json:"task,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event type constants.
const (
	EventTypeRunStarted   = "run.started"
	EventTypeRunCompleted = "run.completed"
	EventTypeRunFailed    = "run.failed"
	EventTypeTaskFinished = "task.finished"
	EventTypeTaskFailed   = "task.failed"
)

// EventSubscriber is a function that handles events. Delivery is synchronous
// and in-order: the engine executes one task at a time and subscribers run
// inline with it.
type EventSubscriber func(event Event)

// EventPublisher delivers events to registered in-process subscribers.
// A nil *EventPublisher is a no-op.
type EventPublisher struct {
	config      EventsConfig
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	return &EventPublisher{config: cfg}
}

// Subscribe registers a subscriber for all events.
func (ep *EventPublisher) Subscribe(sub EventSubscriber) {
	if ep == nil {
		return
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, sub)
}

// Publish delivers an event to all subscribers, stamping the ID and
// timestamp if unset.
func (ep *EventPublisher) Publish(event Event) {
	if ep == nil || !ep.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Source == "" {
		event.Source = "engine"
	}

	ep.mu.RLock()
	subs := ep.subscribers
	ep.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}

// PublishRunStarted publishes a run started event.
func (ep *EventPublisher) PublishRunStarted(runID, workflow string, total int) {
	ep.Publish(Event{
		Type:     EventTypeRunStarted,
		RunID:    runID,
		Workflow: workflow,
		Message:  fmt.Sprintf("workflow %s started (%d tasks)", workflow, total),
		Level:    string(LevelInfo),
		Data: map[string]interface{}{
			"total_tasks": total,
		},
	})
}

// PublishRunCompleted publishes a run completed event.
func (ep *EventPublisher) PublishRunCompleted(runID, workflow, status string, duration time.Duration) {
	ep.Publish(Event{
		Type:     EventTypeRunCompleted,
		RunID:    runID,
		Workflow: workflow,
		Message:  fmt.Sprintf("workflow %s completed with status %s", workflow, status),
		Level:    string(LevelInfo),
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes a run failed event.
func (ep *EventPublisher) PublishRunFailed(runID, workflow, reason string) {
	ep.Publish(Event{
		Type:     EventTypeRunFailed,
		RunID:    runID,
		Workflow: workflow,
		Message:  fmt.Sprintf("workflow %s failed: %s", workflow, reason),
		Level:    string(LevelError),
	})
}

// PublishTaskFinished publishes a task lifecycle event. The event type is
// task.failed for failed tasks and task.finished otherwise.
func (ep *EventPublisher) PublishTaskFinished(runID, workflow, job, task, state string, index, total int) {
	eventType := EventTypeTaskFinished
	level := LevelInfo
	if state == "failure" {
		eventType = EventTypeTaskFailed
		level = LevelError
	}
	ep.Publish(Event{
		Type:     eventType,
		RunID:    runID,
		Workflow: workflow,
		Job:      job,
		Task:     task,
		Message:  fmt.Sprintf("task %d/%d %s/%s/%s: %s", index, total, workflow, job, task, state),
		Level:    string(level),
		Data: map[string]interface{}{
			"state": state,
			"index": index,
			"total": total,
		},
	})
}
