package task

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID      { return m.id }
func (m *mockTask) Type() string       { return m.taskType }
func (m *mockTask) Payload() []byte    { return m.payload }
func (m *mockTask) Status() TaskStatus { return m.status }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte("test payload"),
		status:   TaskStatusPending,
	}
}

// mockTaskStore implements the TaskStore interface for testing. Rows are
// returned as stored, so recovery tests see inert rows the same way the
// real store returns them.
type mockTaskStore struct {
	mutex           sync.RWMutex
	tasks           map[uuid.UUID]*mockTask
	taskStatusTimes map[uuid.UUID]time.Time
	SaveFn          func(ctx context.Context, task Task) error
	UpdateStatusFn  func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{
		tasks:           make(map[uuid.UUID]*mockTask),
		taskStatusTimes: make(map[uuid.UUID]time.Time),
	}
}

func (s *mockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks[task.ID()] = &mockTask{
		id:       task.ID(),
		taskType: task.Type(),
		payload:  task.Payload(),
		status:   task.Status(),
	}
	s.taskStatusTimes[task.ID()] = time.Now()
	return nil
}

func (s *mockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, exists := s.tasks[taskID]
	if !exists {
		return nil
	}

	row.status = status
	s.taskStatusTimes[taskID] = time.Now()
	return nil
}

func (s *mockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var pending []Task
	for _, row := range s.tasks {
		if row.status == TaskStatusPending {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

func (s *mockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var processing []Task
	now := time.Now()
	for _, row := range s.tasks {
		if row.status != TaskStatusProcessing {
			continue
		}
		statusTime, exists := s.taskStatusTimes[row.ID()]
		if olderThan == 0 || (exists && now.Sub(statusTime) > olderThan) {
			processing = append(processing, row)
		}
	}
	return processing, nil
}

func (s *mockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

func (s *mockTaskStore) statusOf(taskID uuid.UUID) TaskStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	row, exists := s.tasks[taskID]
	if !exists {
		return ""
	}
	return row.status
}

// mockTopicService implements TopicService for card generation task tests.
type mockTopicService struct {
	GetTopicFn            func(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error)
	SetGenerationStatusFn func(ctx context.Context, topicID uuid.UUID, status domain.GenerationStatus) error

	mu       sync.Mutex
	statuses []domain.GenerationStatus
}

func (m *mockTopicService) GetTopic(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error) {
	return m.GetTopicFn(ctx, userID, topicID)
}

func (m *mockTopicService) SetGenerationStatus(
	ctx context.Context,
	topicID uuid.UUID,
	status domain.GenerationStatus,
) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, status)
	m.mu.Unlock()

	if m.SetGenerationStatusFn != nil {
		return m.SetGenerationStatusFn(ctx, topicID, status)
	}
	return nil
}

func (m *mockTopicService) recordedStatuses() []domain.GenerationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GenerationStatus, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// mockGenerator implements Generator for card generation task tests.
type mockGenerator struct {
	GenerateCardsFn func(ctx context.Context, topic *domain.Topic, count int) ([]*domain.Card, error)
}

func (m *mockGenerator) GenerateCards(
	ctx context.Context,
	topic *domain.Topic,
	count int,
) ([]*domain.Card, error) {
	return m.GenerateCardsFn(ctx, topic, count)
}

// mockCardService implements CardService for card generation task tests.
type mockCardService struct {
	SaveGeneratedCardsFn func(ctx context.Context, topicID uuid.UUID, cards []*domain.Card) error

	mu    sync.Mutex
	saved []*domain.Card
}

func (m *mockCardService) SaveGeneratedCards(
	ctx context.Context,
	topicID uuid.UUID,
	cards []*domain.Card,
) error {
	m.mu.Lock()
	m.saved = append(m.saved, cards...)
	m.mu.Unlock()

	if m.SaveGeneratedCardsFn != nil {
		return m.SaveGeneratedCardsFn(ctx, topicID, cards)
	}
	return nil
}
