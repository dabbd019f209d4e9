package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/platform/logger"
)

// SubscriptionService is the slice of the subscription service the handler
// uses: snapshot reads, plan changes, and the per-user gate operations.
type SubscriptionService interface {
	GetSnapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error)
	ChangePlan(ctx context.Context, userID uuid.UUID, planName string) (quota.Snapshot, error)
	QuotaState(ctx context.Context, userID uuid.UUID) (quota.State, error)
	DismissQuotaPrompt(userID uuid.UUID) quota.State
	OpenPlanChangeFlow(userID uuid.UUID) quota.State
}

// SubscriptionHandler handles the subscription snapshot, plan changes, and
// the quota gate's prompt endpoints.
type SubscriptionHandler struct {
	subscriptions SubscriptionService
	now           func() time.Time
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(subscriptions SubscriptionService, log *slog.Logger) *SubscriptionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        log.With(slog.String("component", "subscription_handler")),
	}
}

// GetSubscription handles GET /subscription: the full usage snapshot plus
// the reset countdown.
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	snap, err := h.subscriptions.GetSnapshot(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load subscription")
		return
	}

	resp := snapshotToResponse(snap, quota.TimeUntilReset(snap.UsageDate, h.now()))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ChangePlan handles PUT /subscription/plan. This is the destination the
// gate's plan-change navigation points at; ?quota_prompt=true marks a change
// entered from the blocking prompt and is echoed back.
func (h *SubscriptionHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ChangePlanRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	snap, err := h.subscriptions.ChangePlan(r.Context(), userID, req.PlanType)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to change plan")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Info("plan changed",
		slog.String("user_id", userID.String()),
		slog.String("plan_type", snap.PlanType))

	resp := snapshotToResponse(snap, quota.TimeUntilReset(snap.UsageDate, h.now()))
	resp.QuotaPrompt = r.URL.Query().Get("quota_prompt") == "true"
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetQuota handles GET /quota: the gate's current blocking-prompt view.
func (h *SubscriptionHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	state, err := h.subscriptions.QuotaState(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load quota state")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, state)
}

// DismissQuota handles POST /quota/dismiss: clears the blocking prompt.
func (h *SubscriptionHandler) DismissQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	state := h.subscriptions.DismissQuotaPrompt(userID)
	shared.RespondWithJSON(w, r, http.StatusOK, state)
}

// OpenPlanChange handles POST /quota/plan-change: clears the blocking
// prompt and emits exactly one navigation signal toward the plan-change
// destination.
func (h *SubscriptionHandler) OpenPlanChange(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	h.subscriptions.OpenPlanChangeFlow(userID)

	shared.RespondWithJSON(w, r, http.StatusOK, PlanChangeFlowResponse{
		Destination: "plan-change",
		QuotaPrompt: true,
	})
}
