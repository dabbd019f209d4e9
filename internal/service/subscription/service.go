// Package subscription owns the subscription state behind the quota gate:
// it assembles usage snapshots, records metered actions, applies plan
// changes, and keeps the per-user gate registry.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/platform/metrics"
	"github.com/parlohq/parlo-api/internal/store"
)

// SnapshotCache caches assembled snapshots between reads. The redis
// implementation satisfies this; tests use an in-memory fake.
type SnapshotCache interface {
	Get(ctx context.Context, userID uuid.UUID) (quota.Snapshot, bool, error)
	Set(ctx context.Context, userID uuid.UUID, snap quota.Snapshot) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// PlanChangeNotifier receives the gate's navigation signal when a user
// enters the plan-change flow from the quota prompt.
type PlanChangeNotifier interface {
	NotifyPlanChangeRequested(userID uuid.UUID, quotaPrompt bool)
}

// Service assembles quota snapshots from plan definitions and daily usage,
// records metered actions, applies plan changes, and hands out per-user
// gates. It is safe for concurrent use.
type Service struct {
	users    store.UserStore
	usage    store.UsageStore
	plans    domain.Plans
	cache    SnapshotCache
	notifier PlanChangeNotifier
	registry *gateRegistry
	logger   *slog.Logger
	now      func() time.Time // injectable for testing
}

// NewService creates the subscription service. plans must include the free
// plan, which unknown plan names fall back to; passing nil plans installs
// the built-in defaults. notifier may be nil when nothing listens for
// plan-change signals.
func NewService(
	users store.UserStore,
	usage store.UsageStore,
	plans domain.Plans,
	cache SnapshotCache,
	notifier PlanChangeNotifier,
	gateCacheSize int,
	logger *slog.Logger,
) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store cannot be nil")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage store cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("snapshot cache cannot be nil")
	}
	if plans == nil {
		plans = domain.DefaultPlans()
	}
	if _, ok := plans.ByName(domain.PlanFree); !ok {
		return nil, fmt.Errorf("plan set must define the %q plan", domain.PlanFree)
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		users:    users,
		usage:    usage,
		plans:    plans,
		cache:    cache,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "subscription_service")),
		now:      time.Now,
	}

	registry, err := newGateRegistry(gateCacheSize, svc.newGateEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate registry: %w", err)
	}
	svc.registry = registry

	return svc, nil
}

// newGateEntry builds the gate for one user: a holder the service refreshes
// before checks, and a navigator that forwards the plan-change signal with
// the user attached.
func (s *Service) newGateEntry(userID uuid.UUID) *gateEntry {
	holder := &snapshotHolder{}
	navigator := quota.NavigatorFunc(func(quotaPrompt bool) {
		if s.notifier != nil {
			s.notifier.NotifyPlanChangeRequested(userID, quotaPrompt)
		}
	})
	gate := quota.NewGateWithTimeFunc(holder, navigator, func() time.Time { return s.now() })
	return &gateEntry{gate: gate, holder: holder}
}

// GetSnapshot returns the user's current snapshot, serving from cache when
// possible and assembling from storage on a miss. Cache failures degrade to
// assembly rather than failing the read.
func (s *Service) GetSnapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	snap, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		log.Warn("snapshot cache read failed, assembling from storage",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	} else if ok {
		metrics.SnapshotCacheHits.Inc()
		return snap, nil
	}
	metrics.SnapshotCacheMisses.Inc()

	snap, err = s.assembleSnapshot(ctx, userID)
	if err != nil {
		return quota.Snapshot{}, err
	}

	if err := s.cache.Set(ctx, userID, snap); err != nil {
		log.Warn("failed to cache assembled snapshot",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}

	return snap, nil
}

// assembleSnapshot builds a snapshot from the user's plan and today's usage
// row. A missing usage row means no metered action happened today: zero
// counts and an absent usage date.
func (s *Service) assembleSnapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return quota.Snapshot{}, fmt.Errorf("failed to load user for snapshot: %w", err)
	}

	plan := s.planFor(ctx, user.PlanType)
	snap := quota.Snapshot{
		PlanType:  plan.Name,
		Unlimited: plan.Unlimited,
	}

	usage, err := s.usage.GetForDay(ctx, userID, s.now())
	switch {
	case errors.Is(err, store.ErrUsageNotFound):
		// first metered action of the day hasn't happened yet
	case err != nil:
		return quota.Snapshot{}, fmt.Errorf("failed to load daily usage: %w", err)
	default:
		snap.SessionsUsed = usage.SessionsUsed
		snap.GenerationsUsed = usage.GenerationsUsed
		snap.UsageDate = usage.DateString()
	}

	if plan.Unlimited {
		snap.SessionsLimit = quota.UnlimitedSentinel
		snap.SessionsRemaining = quota.UnlimitedSentinel
		snap.GenerationsLimit = quota.UnlimitedSentinel
		snap.GenerationsRemaining = quota.UnlimitedSentinel
		return snap, nil
	}

	snap.SessionsLimit = plan.SessionsPerDay
	snap.SessionsRemaining = remaining(plan.SessionsPerDay, snap.SessionsUsed)
	snap.GenerationsLimit = plan.GenerationsPerDay
	snap.GenerationsRemaining = remaining(plan.GenerationsPerDay, snap.GenerationsUsed)
	return snap, nil
}

// planFor resolves a plan name, falling back to the free plan's limits when
// the name is unknown. Fallback keeps a stale or corrupt plan value from
// granting more than the most restrictive tier.
func (s *Service) planFor(ctx context.Context, name string) domain.Plan {
	if plan, ok := s.plans.ByName(name); ok {
		return plan
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("unknown plan type, falling back to free",
		slog.String("plan_type", name))
	plan, _ := s.plans.ByName(domain.PlanFree)
	return plan
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

// RecordUsage increments the user's counter for the given quota type and
// invalidates the cached snapshot so the next read reflects it.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID, t quota.Type) (*domain.DailyUsage, error) {
	row, err := s.recordUsage(ctx, s.usage, userID, t)
	if err != nil {
		return nil, err
	}
	s.InvalidateSnapshot(ctx, userID)
	return row, nil
}

// RecordUsageInTx records usage inside the caller's transaction, so a
// metered action and its usage increment commit or roll back together. The
// caller must InvalidateSnapshot after the transaction commits.
func (s *Service) RecordUsageInTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, t quota.Type) (*domain.DailyUsage, error) {
	return s.recordUsage(ctx, s.usage.WithTx(tx), userID, t)
}

func (s *Service) recordUsage(ctx context.Context, usageStore store.UsageStore, userID uuid.UUID, t quota.Type) (*domain.DailyUsage, error) {
	switch t {
	case quota.TypeSession:
		return usageStore.IncrementSessions(ctx, userID, s.now())
	case quota.TypeGeneration:
		return usageStore.IncrementGenerations(ctx, userID, s.now())
	default:
		return nil, fmt.Errorf("cannot record usage for unknown quota type %q", t)
	}
}

// InvalidateSnapshot drops the user's cached snapshot. Failures are logged
// and swallowed: the TTL bounds how long a stale entry can live, and there
// is nothing actionable for the caller.
func (s *Service) InvalidateSnapshot(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to invalidate snapshot cache",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}

// ChangePlan moves the user to the named plan and returns the snapshot
// assembled under the new limits. Unknown plan names fail with
// ErrUnknownPlan; fallback resolution applies only to reads.
func (s *Service) ChangePlan(ctx context.Context, userID uuid.UUID, planName string) (quota.Snapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	plan, ok := s.plans.ByName(planName)
	if !ok {
		return quota.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planName)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return quota.Snapshot{}, fmt.Errorf("failed to load user for plan change: %w", err)
	}

	user.ChangePlan(plan.Name)
	if err := s.users.Update(ctx, user); err != nil {
		return quota.Snapshot{}, fmt.Errorf("failed to update user plan: %w", err)
	}

	s.InvalidateSnapshot(ctx, userID)
	log.Info("plan changed",
		slog.String("user_id", userID.String()),
		slog.String("plan_type", plan.Name))

	return s.GetSnapshot(ctx, userID)
}

// Decision is the outcome of one quota check: whether the action may
// proceed, the gate state the blocking prompt renders from, and the snapshot
// the decision was made against (the deny response carries its plan type).
type Decision struct {
	Allowed  bool
	State    quota.State
	Snapshot quota.Snapshot
}

// CheckQuota refreshes the user's gate with a current snapshot and asks it
// whether an action of the given type may proceed.
func (s *Service) CheckQuota(ctx context.Context, userID uuid.UUID, t quota.Type) (Decision, error) {
	snap, err := s.GetSnapshot(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	entry := s.registry.entryFor(userID)
	entry.holder.set(snap)

	allowed := entry.gate.CheckAndProceed(t)
	metrics.QuotaChecksTotal.WithLabelValues(string(t), strconv.FormatBool(allowed)).Inc()
	if !allowed {
		metrics.QuotaExhaustionsTotal.WithLabelValues(string(t), snap.PlanType).Inc()
	}

	return Decision{Allowed: allowed, State: entry.gate.State(), Snapshot: snap}, nil
}

// QuotaState refreshes the gate's snapshot and returns its current view,
// including the reset countdown.
func (s *Service) QuotaState(ctx context.Context, userID uuid.UUID) (quota.State, error) {
	snap, err := s.GetSnapshot(ctx, userID)
	if err != nil {
		return quota.State{}, err
	}

	entry := s.registry.entryFor(userID)
	entry.holder.set(snap)
	return entry.gate.State(), nil
}

// DismissQuotaPrompt clears the user's blocking prompt and returns the
// resulting state. Safe to call when nothing is blocked.
func (s *Service) DismissQuotaPrompt(userID uuid.UUID) quota.State {
	entry := s.registry.entryFor(userID)
	entry.gate.Dismiss()
	return entry.gate.State()
}

// OpenPlanChangeFlow clears the user's blocking prompt and emits exactly one
// plan-change navigation signal carrying the quota-origin marker.
func (s *Service) OpenPlanChangeFlow(userID uuid.UUID) quota.State {
	entry := s.registry.entryFor(userID)
	entry.gate.OpenPlanChangeFlow()
	metrics.PlanChangeFlowsTotal.WithLabelValues("quota_prompt").Inc()
	return entry.gate.State()
}
