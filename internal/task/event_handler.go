package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/parlohq/parlo-api/internal/events"
)

// TaskEnqueuer is the slice of the runner the event handler needs. The task
// row is already persisted by the time the event fires, so the handler only
// hands the task to the in-process queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// GenerationEventHandler listens for generation_requested events, rebuilds
// the persisted task with live dependencies, and enqueues it for execution.
type GenerationEventHandler struct {
	reconstruct Reconstructor
	runner      TaskEnqueuer
	logger      *slog.Logger
}

// NewGenerationEventHandler creates an event handler that feeds requested
// generation tasks to the given runner.
func NewGenerationEventHandler(
	reconstruct Reconstructor,
	runner TaskEnqueuer,
	logger *slog.Logger,
) *GenerationEventHandler {
	return &GenerationEventHandler{
		reconstruct: reconstruct,
		runner:      runner,
		logger:      logger.With("component", "generation_event_handler"),
	}
}

// HandleEvent processes generation_requested events. Events of other types
// are ignored so the handler can share an emitter with unrelated listeners.
func (h *GenerationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.EventTypeGenerationRequested {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.GenerationRequestedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	// Rebuild the task from the same fields the request transaction
	// persisted, keeping the stored task ID.
	data, err := json.Marshal(cardGenerationPayload{
		TopicID: payload.TopicID,
		UserID:  payload.UserID,
		Count:   payload.Count,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	generationTask, err := h.reconstruct(payload.TaskID, data)
	if err != nil {
		h.logger.Error("failed to reconstruct task",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to reconstruct task: %w", err)
	}

	if err := h.runner.Enqueue(ctx, generationTask); err != nil {
		h.logger.Error("failed to enqueue task",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.Info("generation task enqueued",
		"task_id", payload.TaskID,
		"topic_id", payload.TopicID,
		"event_id", event.ID)
	return nil
}

// Ensure GenerationEventHandler implements events.EventHandler
var _ events.EventHandler = (*GenerationEventHandler)(nil)
