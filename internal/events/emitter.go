package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events to registered handlers synchronously,
// in registration order. It is the only EventEmitter implementation; the
// process has no external bus.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers registered.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes a handler to every event emitted from now on.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", "handler_count", count)
}

// EmitEvent delivers the event to every registered handler. A failing handler
// does not stop delivery to the rest; the first failure is returned after all
// handlers have run.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	handlers := e.snapshot()

	if len(handlers) == 0 {
		e.logger.Warn("event dropped, no handlers registered",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	failed := 0
	for _, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			e.logger.Error("event handler failed",
				"error", err,
				"event_id", event.ID,
				"event_type", event.Type)
		}
	}

	e.logger.Debug("event dispatched",
		"event_id", event.ID,
		"event_type", event.Type,
		"handlers", len(handlers),
		"failed", failed)

	return firstErr
}

// snapshot copies the handler list so dispatch runs without holding the lock.
func (e *InMemoryEventEmitter) snapshot() []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]EventHandler, len(e.handlers))
	copy(out, e.handlers)
	return out
}
