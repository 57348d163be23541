package runtime

import (
	"sync"
	"time"
)

// EventType represents the type of orchestration event.
type EventType string

const (
	EventRunStart         EventType = "run_start"
	EventStepStart        EventType = "step_start"
	EventStepEnd          EventType = "step_end"
	EventStepFailed       EventType = "step_failed"
	EventMessage          EventType = "message"
	EventGuardViolation   EventType = "guard_violation"
	EventTaskComplete     EventType = "task_complete"
	EventTopicAnalyzed    EventType = "topic_analyzed"
	EventPipelineComplete EventType = "pipeline_complete"
	EventRunError         EventType = "run_error"
)

// Event represents an orchestration event with associated data.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus manages event publication and subscription.
// It provides a decoupled way for orchestration components to communicate.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allHandlers = append(eb.allHandlers, handler)
}

// Publish sends an event to all registered handlers. Handlers run on the
// publishing goroutine, outside the bus lock.
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	specific := append([]EventHandler(nil), eb.handlers[event.Type]...)
	all := append([]EventHandler(nil), eb.allHandlers...)
	eb.mu.RUnlock()

	for _, handler := range specific {
		handler(event)
	}
	for _, handler := range all {
		handler(event)
	}
}

// PublishSimple is a convenience method for publishing events without additional data.
func (eb *EventBus) PublishSimple(eventType EventType, runID string) {
	eb.Publish(Event{
		Type:  eventType,
		RunID: runID,
	})
}

// PublishWithData publishes an event with associated data.
func (eb *EventBus) PublishWithData(eventType EventType, runID string, data map[string]interface{}) {
	eb.Publish(Event{
		Type:  eventType,
		RunID: runID,
		Data:  data,
	})
}
