package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published on the in-process bus.
const (
	// EventTypeGenerationRequested is emitted after a generation request
	// commits; the task pipeline's handler picks it up and enqueues the task.
	EventTypeGenerationRequested = "generation_requested"

	// EventTypePlanChangeRequested is emitted when the quota gate routes a
	// user into the plan-change flow.
	EventTypePlanChangeRequested = "plan_change_requested"
)

// Event is a message published on the bus. The payload is serialized at
// creation so handlers never share mutable state with the emitter.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened; see the EventType constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// GenerationRequestedPayload is the payload of EventTypeGenerationRequested
// events. It carries everything the handler needs to rebuild the task.
type GenerationRequestedPayload struct {
	TaskID  uuid.UUID `json:"task_id"`
	TopicID uuid.UUID `json:"topic_id"`
	UserID  uuid.UUID `json:"user_id"`
	Count   int       `json:"count"`
}

// PlanChangeRequestedPayload is the payload of EventTypePlanChangeRequested
// events. QuotaPrompt reports whether the flow was entered from the quota
// exhaustion prompt.
type PlanChangeRequestedPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	QuotaPrompt bool      `json:"quota_prompt"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
