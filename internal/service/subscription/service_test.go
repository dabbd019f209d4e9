package subscription

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/store"
)

// testNow is mid-morning UTC so countdown assertions are stable: 14h to the
// next midnight.
var testNow = time.Date(2026, time.February, 13, 10, 0, 0, 0, time.UTC)

// fakeUserStore is a map-backed store.UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*domain.User
	updated []*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserStore) add(user *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	f.users[user.ID] = &copied
	f.updated = append(f.updated, &copied)
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) WithTx(tx *sql.Tx) store.UserStore { return f }

// fakeUsageStore keeps real per-day counters so upsert semantics hold.
type fakeUsageStore struct {
	mu          sync.Mutex
	rows        map[string]*domain.DailyUsage
	getForDayN  int
	incrementsN int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{rows: make(map[string]*domain.DailyUsage)}
}

func usageKey(userID uuid.UUID, day time.Time) string {
	return userID.String() + "|" + domain.UsageDay(day).Format(domain.UsageDateLayout)
}

func (f *fakeUsageStore) seed(userID uuid.UUID, day time.Time, sessions, generations int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[usageKey(userID, day)] = &domain.DailyUsage{
		UserID:          userID,
		UsageDate:       domain.UsageDay(day),
		SessionsUsed:    sessions,
		GenerationsUsed: generations,
		UpdatedAt:       day,
	}
}

func (f *fakeUsageStore) GetForDay(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getForDayN++
	row, ok := f.rows[usageKey(userID, day)]
	if !ok {
		return nil, store.ErrUsageNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeUsageStore) increment(userID uuid.UUID, day time.Time, sessions, generations int) *domain.DailyUsage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementsN++
	key := usageKey(userID, day)
	row, ok := f.rows[key]
	if !ok {
		row = &domain.DailyUsage{UserID: userID, UsageDate: domain.UsageDay(day)}
		f.rows[key] = row
	}
	row.SessionsUsed += sessions
	row.GenerationsUsed += generations
	row.UpdatedAt = day
	copied := *row
	return &copied
}

func (f *fakeUsageStore) IncrementSessions(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error) {
	return f.increment(userID, day, 1, 0), nil
}

func (f *fakeUsageStore) IncrementGenerations(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error) {
	return f.increment(userID, day, 0, 1), nil
}

func (f *fakeUsageStore) WithTx(tx *sql.Tx) store.UsageStore { return f }

// fakeSnapshotCache records cache traffic for assertions.
type fakeSnapshotCache struct {
	mu            sync.Mutex
	entries       map[uuid.UUID]quota.Snapshot
	sets          int
	invalidations int
	getErr        error
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[uuid.UUID]quota.Snapshot)}
}

func (f *fakeSnapshotCache) Get(ctx context.Context, userID uuid.UUID) (quota.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return quota.Snapshot{}, false, f.getErr
	}
	snap, ok := f.entries[userID]
	return snap, ok, nil
}

func (f *fakeSnapshotCache) Set(ctx context.Context, userID uuid.UUID, snap quota.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID] = snap
	f.sets++
	return nil
}

func (f *fakeSnapshotCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, userID)
	f.invalidations++
	return nil
}

type planChangeSignal struct {
	userID      uuid.UUID
	quotaPrompt bool
}

type fakeNotifier struct {
	mu      sync.Mutex
	signals []planChangeSignal
}

func (f *fakeNotifier) NotifyPlanChangeRequested(userID uuid.UUID, quotaPrompt bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, planChangeSignal{userID: userID, quotaPrompt: quotaPrompt})
}

func (f *fakeNotifier) all() []planChangeSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]planChangeSignal(nil), f.signals...)
}

type testEnv struct {
	svc      *Service
	users    *fakeUserStore
	usage    *fakeUsageStore
	cache    *fakeSnapshotCache
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithGateCache(t, 64)
}

func newTestEnvWithGateCache(t *testing.T, gateCacheSize int) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserStore(),
		usage:    newFakeUsageStore(),
		cache:    newFakeSnapshotCache(),
		notifier: &fakeNotifier{},
	}

	svc, err := NewService(
		env.users,
		env.usage,
		domain.DefaultPlans(),
		env.cache,
		env.notifier,
		gateCacheSize,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)

	svc.now = func() time.Time { return testNow }
	env.svc = svc
	return env
}

func (e *testEnv) addUser(t *testing.T, planType string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(uuid.NewString()+"@example.com", "correct-horse-battery")
	require.NoError(t, err)
	user.Password = ""
	user.HashedPassword = "$2a$10$fakehashfakehashfakehash"
	user.PlanType = planType
	e.users.add(user)
	return user
}

func TestGetSnapshotAssemblesFromStorage(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.usage.seed(user.ID, testNow, 2, 0)

	snap, err := env.svc.GetSnapshot(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, quota.Snapshot{
		SessionsUsed:         2,
		SessionsLimit:        3,
		SessionsRemaining:    1,
		GenerationsUsed:      0,
		GenerationsLimit:     2,
		GenerationsRemaining: 2,
		PlanType:             domain.PlanFree,
		UsageDate:            "2026-02-13",
	}, snap)
	assert.Equal(t, 1, env.cache.sets, "assembled snapshot should be cached")
}

func TestGetSnapshotServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()

	cached := quota.Snapshot{SessionsRemaining: 1, PlanType: domain.PlanFree}
	require.NoError(t, env.cache.Set(context.Background(), userID, cached))

	// No user row exists, so a storage read would fail; the cache hit must
	// short-circuit assembly entirely.
	snap, err := env.svc.GetSnapshot(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, cached, snap)
	assert.Zero(t, env.usage.getForDayN)
}

func TestGetSnapshotBeforeFirstUsage(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	snap, err := env.svc.GetSnapshot(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Zero(t, snap.SessionsUsed)
	assert.Zero(t, snap.GenerationsUsed)
	assert.Equal(t, 3, snap.SessionsRemaining)
	assert.Empty(t, snap.UsageDate, "usage date stays absent until the first metered action")
}

func TestGetSnapshotUnknownPlanFallsBackToFree(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "platinum")

	snap, err := env.svc.GetSnapshot(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PlanFree, snap.PlanType)
	assert.Equal(t, 3, snap.SessionsLimit)
	assert.Equal(t, 2, snap.GenerationsLimit)
	assert.False(t, snap.Unlimited)
}

func TestGetSnapshotUnlimitedPlan(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanUnlimited)
	env.usage.seed(user.ID, testNow, 50, 10)

	snap, err := env.svc.GetSnapshot(context.Background(), user.ID)
	require.NoError(t, err)

	assert.True(t, snap.Unlimited)
	assert.Equal(t, 50, snap.SessionsUsed)
	assert.Equal(t, quota.UnlimitedSentinel, snap.SessionsLimit)
	assert.Equal(t, quota.UnlimitedSentinel, snap.SessionsRemaining)
	assert.Equal(t, quota.UnlimitedSentinel, snap.GenerationsRemaining)
}

func TestGetSnapshotCacheFailureDegradesToAssembly(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.cache.getErr = assert.AnError

	snap, err := env.svc.GetSnapshot(context.Background(), user.ID)
	require.NoError(t, err, "a cache outage must not fail the read")
	assert.Equal(t, domain.PlanFree, snap.PlanType)
}

func TestGetSnapshotUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetSnapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestRecordUsageUpsertsAndInvalidates(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	first, err := env.svc.RecordUsage(context.Background(), user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SessionsUsed)

	second, err := env.svc.RecordUsage(context.Background(), user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.Equal(t, 2, second.SessionsUsed)
	assert.Zero(t, second.GenerationsUsed)

	assert.Len(t, env.usage.rows, 1, "one UTC day means one row")
	assert.Equal(t, 2, env.cache.invalidations)
}

func TestRecordUsageGenerations(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	row, err := env.svc.RecordUsage(context.Background(), user.ID, quota.TypeGeneration)
	require.NoError(t, err)
	assert.Equal(t, 1, row.GenerationsUsed)
	assert.Zero(t, row.SessionsUsed)
}

func TestRecordUsageUnknownType(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	row, err := env.svc.RecordUsage(context.Background(), user.ID, quota.Type("bogus"))
	require.Error(t, err)
	assert.Nil(t, row)
	assert.Zero(t, env.cache.invalidations)
}

func TestRecordUsageInTxLeavesCacheToCaller(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	row, err := env.svc.RecordUsageInTx(context.Background(), nil, user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.Equal(t, 1, row.SessionsUsed)
	assert.Zero(t, env.cache.invalidations, "invalidation belongs after the commit")
}

func TestChangePlan(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	snap, err := env.svc.ChangePlan(context.Background(), user.ID, domain.PlanPro)
	require.NoError(t, err)

	assert.Equal(t, domain.PlanPro, snap.PlanType)
	assert.Equal(t, 20, snap.SessionsLimit)
	assert.Equal(t, 10, snap.GenerationsLimit)

	require.Len(t, env.users.updated, 1)
	assert.Equal(t, domain.PlanPro, env.users.updated[0].PlanType)
	assert.GreaterOrEqual(t, env.cache.invalidations, 1)
}

func TestChangePlanUnknownPlan(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)

	_, err := env.svc.ChangePlan(context.Background(), user.ID, "platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
	assert.Empty(t, env.users.updated)
}

func TestCheckQuotaAllowsWithRemaining(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.usage.seed(user.ID, testNow, 2, 0)

	decision, err := env.svc.CheckQuota(context.Background(), user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.State.Blocked)
}

func TestCheckQuotaDeniesWhenExhausted(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.usage.seed(user.ID, testNow, 3, 0)

	decision, err := env.svc.CheckQuota(context.Background(), user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, decision.State.Blocked)
	assert.Equal(t, quota.TypeSession, decision.State.Type)
	assert.Equal(t, "14h 0m", decision.State.TimeUntilReset)
	assert.Equal(t, domain.PlanFree, decision.Snapshot.PlanType, "deny responses carry the plan")
}

func TestCheckQuotaDeniesAfterLimitRecordings(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	ctx := context.Background()

	// The free plan allows two generations per day.
	for i := 0; i < 2; i++ {
		decision, err := env.svc.CheckQuota(ctx, user.ID, quota.TypeGeneration)
		require.NoError(t, err)
		require.True(t, decision.Allowed)

		_, err = env.svc.RecordUsage(ctx, user.ID, quota.TypeGeneration)
		require.NoError(t, err)
	}

	decision, err := env.svc.CheckQuota(ctx, user.ID, quota.TypeGeneration)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, quota.TypeGeneration, decision.State.Type)
}

func TestCheckQuotaUnlimitedNeverDenies(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanUnlimited)
	env.usage.seed(user.ID, testNow, 1000, 1000)

	decision, err := env.svc.CheckQuota(context.Background(), user.ID, quota.TypeSession)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.State.Blocked)
}

func TestQuotaStateSharedPerUser(t *testing.T) {
	env := newTestEnv(t)
	blocked := env.addUser(t, domain.PlanFree)
	idle := env.addUser(t, domain.PlanFree)
	env.usage.seed(blocked.ID, testNow, 3, 0)
	ctx := context.Background()

	_, err := env.svc.CheckQuota(ctx, blocked.ID, quota.TypeSession)
	require.NoError(t, err)

	blockedState, err := env.svc.QuotaState(ctx, blocked.ID)
	require.NoError(t, err)
	assert.True(t, blockedState.Blocked, "the deny must be visible on a later read of the same user's gate")

	idleState, err := env.svc.QuotaState(ctx, idle.ID)
	require.NoError(t, err)
	assert.False(t, idleState.Blocked, "gates are per user")
}

func TestDismissQuotaPrompt(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.usage.seed(user.ID, testNow, 3, 0)
	ctx := context.Background()

	_, err := env.svc.CheckQuota(ctx, user.ID, quota.TypeSession)
	require.NoError(t, err)

	state := env.svc.DismissQuotaPrompt(user.ID)
	assert.False(t, state.Blocked)
	assert.Empty(t, env.notifier.all(), "dismiss must not navigate anywhere")
}

func TestOpenPlanChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, domain.PlanFree)
	env.usage.seed(user.ID, testNow, 3, 0)
	ctx := context.Background()

	_, err := env.svc.CheckQuota(ctx, user.ID, quota.TypeSession)
	require.NoError(t, err)

	state := env.svc.OpenPlanChangeFlow(user.ID)
	assert.False(t, state.Blocked)

	signals := env.notifier.all()
	require.Len(t, signals, 1, "exactly one navigation signal per call")
	assert.Equal(t, user.ID, signals[0].userID)
	assert.True(t, signals[0].quotaPrompt)

	env.svc.OpenPlanChangeFlow(user.ID)
	assert.Len(t, env.notifier.all(), 2)
}

func TestGateRegistryEvictionDropsPromptState(t *testing.T) {
	env := newTestEnvWithGateCache(t, 1)
	first := env.addUser(t, domain.PlanFree)
	second := env.addUser(t, domain.PlanFree)
	env.usage.seed(first.ID, testNow, 3, 0)
	ctx := context.Background()

	_, err := env.svc.CheckQuota(ctx, first.ID, quota.TypeSession)
	require.NoError(t, err)

	// Touching a second user evicts the first gate from the size-1 registry.
	_, err = env.svc.CheckQuota(ctx, second.ID, quota.TypeSession)
	require.NoError(t, err)

	state, err := env.svc.QuotaState(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, state.Blocked, "a rebuilt gate starts idle; only display state is lost")
	assert.Equal(t, 1, env.svc.registry.len())
}

func TestNewServiceValidation(t *testing.T) {
	users := newFakeUserStore()
	usage := newFakeUsageStore()
	cache := newFakeSnapshotCache()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		make    func() (*Service, error)
		wantErr string
	}{
		{
			name: "nil user store",
			make: func() (*Service, error) {
				return NewService(nil, usage, nil, cache, nil, 8, log)
			},
			wantErr: "user store",
		},
		{
			name: "nil usage store",
			make: func() (*Service, error) {
				return NewService(users, nil, nil, cache, nil, 8, log)
			},
			wantErr: "usage store",
		},
		{
			name: "nil cache",
			make: func() (*Service, error) {
				return NewService(users, usage, nil, nil, nil, 8, log)
			},
			wantErr: "snapshot cache",
		},
		{
			name: "plans without free",
			make: func() (*Service, error) {
				plans := domain.Plans{{Name: domain.PlanPro, SessionsPerDay: 20, GenerationsPerDay: 10}}
				return NewService(users, usage, plans, cache, nil, 8, log)
			},
			wantErr: "free",
		},
		{
			name: "non-positive gate cache",
			make: func() (*Service, error) {
				return NewService(users, usage, nil, cache, nil, 0, log)
			},
			wantErr: "gate registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.make()
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
