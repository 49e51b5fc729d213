package telemetry

import (
	"testing"
	"time"
)

func TestEventPublisher_Publish_StampsEvent(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})

	var got Event
	ep.Subscribe(func(e Event) {
		got = e
	})

	ep.Publish(Event{Type: EventTypeRunStarted, Message: "hello"})

	if got.ID == "" {
		t.Error("Expected an event ID to be stamped")
	}
	if got.Timestamp.IsZero() {
		t.Error("Expected a timestamp to be stamped")
	}
	if got.Source != "engine" {
		t.Errorf("Expected source engine, got %s", got.Source)
	}
}

func TestEventPublisher_Disabled(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: false})

	delivered := false
	ep.Subscribe(func(e Event) {
		delivered = true
	})
	ep.Publish(Event{Type: EventTypeRunStarted})

	if delivered {
		t.Error("Expected no delivery from a disabled publisher")
	}
}

func TestEventPublisher_NilSafe(t *testing.T) {
	var ep *EventPublisher
	ep.Subscribe(func(e Event) {})
	ep.Publish(Event{Type: EventTypeRunStarted})
	ep.PublishRunCompleted("run", "wf", "success", time.Second)
}

func TestEventPublisher_PublishTaskFinished_FailureType(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})

	var events []Event
	ep.Subscribe(func(e Event) {
		events = append(events, e)
	})

	ep.PublishTaskFinished("run", "wf", "build", "compile", "success", 1, 2)
	ep.PublishTaskFinished("run", "wf", "build", "link", "failure", 2, 2)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventTypeTaskFinished || events[0].Level != string(LevelInfo) {
		t.Errorf("Expected task.finished/info, got %s/%s", events[0].Type, events[0].Level)
	}
	if events[1].Type != EventTypeTaskFailed || events[1].Level != string(LevelError) {
		t.Errorf("Expected task.failed/error, got %s/%s", events[1].Type, events[1].Level)
	}
	if events[1].Data["index"] != 2 || events[1].Data["total"] != 2 {
		t.Errorf("Expected index/total data, got %v", events[1].Data)
	}
}

func TestEventPublisher_MultipleSubscribers_InOrder(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})

	var order []string
	ep.Subscribe(func(e Event) { order = append(order, "first") })
	ep.Subscribe(func(e Event) { order = append(order, "second") })

	ep.Publish(Event{Type: EventTypeRunStarted})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected synchronous in-order delivery, got %v", order)
	}
}
