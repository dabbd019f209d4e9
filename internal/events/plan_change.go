package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// PlanChangePublisher forwards the quota gate's plan-change navigation
// signal onto the event bus. It satisfies the subscription service's
// PlanChangeNotifier interface.
//
// The signal fires from inside the gate's state transition, so publishing
// failures are logged rather than propagated; the navigation itself (the
// HTTP response) does not depend on the bus.
type PlanChangePublisher struct {
	emitter EventEmitter
	logger  *slog.Logger
}

// NewPlanChangePublisher creates a publisher over the given emitter.
func NewPlanChangePublisher(emitter EventEmitter, logger *slog.Logger) *PlanChangePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanChangePublisher{
		emitter: emitter,
		logger:  logger.With("component", "plan_change_publisher"),
	}
}

// NotifyPlanChangeRequested publishes a plan-change event for the user.
func (p *PlanChangePublisher) NotifyPlanChangeRequested(userID uuid.UUID, quotaPrompt bool) {
	event, err := NewEvent(EventTypePlanChangeRequested, PlanChangeRequestedPayload{
		UserID:      userID,
		QuotaPrompt: quotaPrompt,
	})
	if err != nil {
		p.logger.Error("failed to create plan change event",
			"error", err,
			"user_id", userID)
		return
	}

	if err := p.emitter.EmitEvent(context.Background(), event); err != nil {
		p.logger.Error("failed to emit plan change event",
			"error", err,
			"user_id", userID,
			"event_id", event.ID)
	}
}
