package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/events"
	"github.com/parlohq/parlo-api/internal/service/subscription"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/parlohq/parlo-api/internal/task"
)

// newMockDB returns a sqlmock-backed handle for the transaction shells the
// services open. Store calls inside the transactions go through the fakes,
// so tests only expect Begin/Commit/Rollback.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock database")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, mock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTopicStore is an in-memory store.TopicStore.
type fakeTopicStore struct {
	mu            sync.Mutex
	topics        map[uuid.UUID]*domain.Topic
	statusChanges []domain.GenerationStatus
	createErr     error
	getErr        error
	updateErr     error
	deleteErr     error
}

func newFakeTopicStore() *fakeTopicStore {
	return &fakeTopicStore{topics: make(map[uuid.UUID]*domain.Topic)}
}

func (f *fakeTopicStore) Create(ctx context.Context, topic *domain.Topic) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *topic
	f.topics[topic.ID] = &cp
	return nil
}

func (f *fakeTopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	topic, ok := f.topics[id]
	if !ok {
		return nil, store.ErrTopicNotFound
	}
	cp := *topic
	return &cp, nil
}

func (f *fakeTopicStore) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Topic
	for _, topic := range f.topics {
		if topic.UserID == userID {
			cp := *topic
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTopicStore) UpdateGenerationStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.GenerationStatus,
) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	topic, ok := f.topics[id]
	if !ok {
		return store.ErrTopicNotFound
	}
	topic.GenerationStatus = status
	f.statusChanges = append(f.statusChanges, status)
	return nil
}

func (f *fakeTopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.topics[id]; !ok {
		return store.ErrTopicNotFound
	}
	delete(f.topics, id)
	return nil
}

func (f *fakeTopicStore) WithTx(tx *sql.Tx) store.TopicStore { return f }

// fakeCardStore is an in-memory store.CardStore.
type fakeCardStore struct {
	mu        sync.Mutex
	cards     map[uuid.UUID]*domain.Card
	createErr error
	deleteErr error
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, card := range cards {
		cp := *card
		f.cards[card.ID] = &cp
	}
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (f *fakeCardStore) ListByTopicID(ctx context.Context, topicID uuid.UUID) ([]*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Card
	for _, card := range f.cards {
		if card.TopicID == topicID {
			cp := *card
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

// fakeSessionStore is an in-memory store.StudySessionStore.
type fakeSessionStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*domain.StudySession
	reviews   []*domain.CardReview
	createErr error
	updateErr error
	reviewErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*domain.StudySession)}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *domain.StudySession) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (f *fakeSessionStore) Update(ctx context.Context, session *domain.StudySession) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return store.ErrSessionNotFound
	}
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) CreateReview(ctx context.Context, review *domain.CardReview) error {
	if f.reviewErr != nil {
		return f.reviewErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *review
	f.reviews = append(f.reviews, &cp)
	return nil
}

func (f *fakeSessionStore) WithTx(tx *sql.Tx) store.StudySessionStore { return f }

// fakeQuotaService is a canned-decision service.QuotaService.
type fakeQuotaService struct {
	mu          sync.Mutex
	decision    subscription.Decision
	checkErr    error
	recordErr   error
	checked     []quota.Type
	recorded    []quota.Type
	invalidated int
}

func allowDecision(planType string) subscription.Decision {
	return subscription.Decision{
		Allowed: true,
		State:   quota.State{Blocked: false, TimeUntilReset: "24h"},
		Snapshot: quota.Snapshot{
			PlanType:          planType,
			SessionsRemaining: 1, GenerationsRemaining: 1,
		},
	}
}

func denyDecision(planType string, t quota.Type) subscription.Decision {
	return subscription.Decision{
		Allowed: false,
		State:   quota.State{Blocked: true, Type: t, TimeUntilReset: "4h 30m"},
		Snapshot: quota.Snapshot{
			PlanType:  planType,
			UsageDate: "2026-02-13",
		},
	}
}

func (f *fakeQuotaService) CheckQuota(
	ctx context.Context,
	userID uuid.UUID,
	t quota.Type,
) (subscription.Decision, error) {
	if f.checkErr != nil {
		return subscription.Decision{}, f.checkErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, t)
	return f.decision, nil
}

func (f *fakeQuotaService) RecordUsageInTx(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	t quota.Type,
) (*domain.DailyUsage, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, t)
	return &domain.DailyUsage{UserID: userID, UsageDate: time.Now().UTC()}, nil
}

func (f *fakeQuotaService) InvalidateSnapshot(ctx context.Context, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

// stubTask is a minimal task.Task for factory and store fakes.
type stubTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   task.TaskStatus
}

func (s *stubTask) ID() uuid.UUID                    { return s.id }
func (s *stubTask) Type() string                     { return s.taskType }
func (s *stubTask) Payload() []byte                  { return s.payload }
func (s *stubTask) Status() task.TaskStatus          { return s.status }
func (s *stubTask) Execute(ctx context.Context) error { return nil }

// fakeTaskFactory hands out stub tasks and records what it was asked for.
type fakeTaskFactory struct {
	mu        sync.Mutex
	lastTopic uuid.UUID
	lastUser  uuid.UUID
	lastCount int
	createErr error
}

func (f *fakeTaskFactory) NewTask(topicID, userID uuid.UUID, count int) (task.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTopic = topicID
	f.lastUser = userID
	f.lastCount = count
	return &stubTask{
		id:       uuid.New(),
		taskType: task.TaskTypeCardGeneration,
		payload:  []byte(`{}`),
		status:   task.TaskStatusPending,
	}, nil
}

// fakeTaskStore is an in-memory task.TaskStore.
type fakeTaskStore struct {
	mu      sync.Mutex
	saved   []task.Task
	saveErr error
}

func (f *fakeTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	return nil
}

func (f *fakeTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) WithTx(tx *sql.Tx) task.TaskStore { return f }

// fakeEmitter records emitted events.
type fakeEmitter struct {
	mu      sync.Mutex
	events  []*events.Event
	emitErr error
}

func (f *fakeEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	if f.emitErr != nil {
		return f.emitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
