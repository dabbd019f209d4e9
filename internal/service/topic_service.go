package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/events"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/service/subscription"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/parlohq/parlo-api/internal/task"
)

// QuotaService is the slice of the subscription service the gated services
// depend on: pre-flight quota checks, usage recording inside their own
// transactions, and snapshot invalidation after commit.
type QuotaService interface {
	// CheckQuota refreshes the user's gate and decides whether an action of
	// the given type may proceed.
	CheckQuota(ctx context.Context, userID uuid.UUID, t quota.Type) (subscription.Decision, error)

	// RecordUsageInTx increments the user's daily counter for the given
	// action type inside the caller's transaction.
	RecordUsageInTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, t quota.Type) (*domain.DailyUsage, error)

	// InvalidateSnapshot drops the user's cached snapshot after usage
	// changed outside the subscription service's own write paths.
	InvalidateSnapshot(ctx context.Context, userID uuid.UUID)
}

// GenerationTaskFactory builds card generation tasks before submission, so
// the request path knows the task ID it persists and returns to the client.
type GenerationTaskFactory interface {
	// NewTask creates a pending generation task for the given topic.
	NewTask(topicID, userID uuid.UUID, count int) (task.Task, error)
}

// TopicService provides topic CRUD and the quota-gated generation request.
type TopicService interface {
	// CreateTopic creates a new topic owned by the given user.
	CreateTopic(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Topic, error)

	// GetTopic retrieves a topic, enforcing ownership.
	GetTopic(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error)

	// ListTopics retrieves all topics owned by the user, newest first.
	ListTopics(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error)

	// DeleteTopic removes a topic and its cards, enforcing ownership.
	DeleteTopic(ctx context.Context, userID, topicID uuid.UUID) error

	// RequestGeneration runs the generation-gated entry point: it checks the
	// generation quota and, when allowed, atomically marks the topic
	// pending, records usage, and persists the generation task, then hands
	// the task to the pipeline. Returns *QuotaExhaustedError on deny.
	RequestGeneration(ctx context.Context, userID, topicID uuid.UUID, count int) (task.Task, error)

	// SetGenerationStatus moves a topic through the generation pipeline
	// states. Used by the generation task, not by handlers.
	SetGenerationStatus(ctx context.Context, topicID uuid.UUID, status domain.GenerationStatus) error
}

// TopicServiceError wraps errors from the topic service with context.
type TopicServiceError struct {
	// Operation is the operation that failed (e.g., "create_topic")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TopicServiceError.
func (e *TopicServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("topic service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("topic service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TopicServiceError) Unwrap() error {
	return e.Err
}

// NewTopicServiceError creates a new TopicServiceError.
func NewTopicServiceError(operation, message string, err error) *TopicServiceError {
	return &TopicServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// topicServiceImpl implements the TopicService interface
type topicServiceImpl struct {
	db               *sql.DB
	topics           store.TopicStore
	tasks            task.TaskStore
	quota            QuotaService
	taskFactory      GenerationTaskFactory
	emitter          events.EventEmitter
	defaultCardCount int
	logger           *slog.Logger
}

// NewTopicService creates a new TopicService.
// It returns an error if any of the required dependencies are nil.
func NewTopicService(
	db *sql.DB,
	topics store.TopicStore,
	tasks task.TaskStore,
	quotaSvc QuotaService,
	taskFactory GenerationTaskFactory,
	emitter events.EventEmitter,
	defaultCardCount int,
	logger *slog.Logger,
) (TopicService, error) {
	if db == nil {
		return nil, NewTopicServiceError("create_service", "db cannot be nil", nil)
	}
	if topics == nil {
		return nil, NewTopicServiceError("create_service", "topic store cannot be nil", nil)
	}
	if tasks == nil {
		return nil, NewTopicServiceError("create_service", "task store cannot be nil", nil)
	}
	if quotaSvc == nil {
		return nil, NewTopicServiceError("create_service", "quota service cannot be nil", nil)
	}
	if taskFactory == nil {
		return nil, NewTopicServiceError("create_service", "task factory cannot be nil", nil)
	}
	if emitter == nil {
		return nil, NewTopicServiceError("create_service", "event emitter cannot be nil", nil)
	}
	if defaultCardCount <= 0 {
		return nil, NewTopicServiceError("create_service", "default card count must be positive", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &topicServiceImpl{
		db:               db,
		topics:           topics,
		tasks:            tasks,
		quota:            quotaSvc,
		taskFactory:      taskFactory,
		emitter:          emitter,
		defaultCardCount: defaultCardCount,
		logger:           logger.With(slog.String("component", "topic_service")),
	}, nil
}

// CreateTopic implements TopicService.CreateTopic.
func (s *topicServiceImpl) CreateTopic(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := domain.NewTopic(userID, title, description)
	if err != nil {
		return nil, err
	}

	if err := s.topics.Create(ctx, topic); err != nil {
		log.Error("failed to create topic",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewTopicServiceError("create_topic", "failed to save topic", err)
	}

	log.Info("topic created",
		slog.String("topic_id", topic.ID.String()),
		slog.String("user_id", userID.String()))

	return topic, nil
}

// GetTopic implements TopicService.GetTopic.
func (s *topicServiceImpl) GetTopic(
	ctx context.Context,
	userID, topicID uuid.UUID,
) (*domain.Topic, error) {
	return s.getOwnedTopic(ctx, userID, topicID)
}

// ListTopics implements TopicService.ListTopics.
func (s *topicServiceImpl) ListTopics(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topics, err := s.topics.ListByUserID(ctx, userID)
	if err != nil {
		log.Error("failed to list topics",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewTopicServiceError("list_topics", "failed to list topics", err)
	}

	return topics, nil
}

// DeleteTopic implements TopicService.DeleteTopic.
func (s *topicServiceImpl) DeleteTopic(ctx context.Context, userID, topicID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.getOwnedTopic(ctx, userID, topicID); err != nil {
		return err
	}

	if err := s.topics.Delete(ctx, topicID); err != nil {
		log.Error("failed to delete topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return NewTopicServiceError("delete_topic", "failed to delete topic", err)
	}

	log.Info("topic deleted",
		slog.String("topic_id", topicID.String()),
		slog.String("user_id", userID.String()))

	return nil
}

// RequestGeneration implements TopicService.RequestGeneration.
//
// The topic status change, the usage increment, and the task row commit in
// one transaction, so a crash between them can never leave usage recorded
// without a recoverable task. The event emission happens after commit; if it
// fails the task row is already durable and runner recovery picks it up on
// the next start.
func (s *topicServiceImpl) RequestGeneration(
	ctx context.Context,
	userID, topicID uuid.UUID,
	count int,
) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := s.getOwnedTopic(ctx, userID, topicID)
	if err != nil {
		return nil, err
	}

	// Reject topics that already have a run in flight before spending quota.
	if err := topic.QueueGeneration(); err != nil {
		if errors.Is(err, domain.ErrGenerationAlreadyQueued) {
			return nil, ErrGenerationInProgress
		}
		return nil, NewTopicServiceError("request_generation", "failed to queue generation", err)
	}

	decision, err := s.quota.CheckQuota(ctx, userID, quota.TypeGeneration)
	if err != nil {
		return nil, NewTopicServiceError("request_generation", "failed to check quota", err)
	}
	if !decision.Allowed {
		return nil, &QuotaExhaustedError{
			Type:     quota.TypeGeneration,
			State:    decision.State,
			PlanType: decision.Snapshot.PlanType,
		}
	}

	if count <= 0 {
		count = s.defaultCardCount
	}

	genTask, err := s.taskFactory.NewTask(topicID, userID, count)
	if err != nil {
		log.Error("failed to create generation task",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return nil, NewTopicServiceError("request_generation", "failed to create task", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTopics := s.topics.WithTx(tx)
		if err := txTopics.UpdateGenerationStatus(ctx, topicID, domain.GenerationStatusPending); err != nil {
			return NewTopicServiceError("request_generation", "failed to mark topic pending", err)
		}

		if _, err := s.quota.RecordUsageInTx(ctx, tx, userID, quota.TypeGeneration); err != nil {
			return NewTopicServiceError("request_generation", "failed to record usage", err)
		}

		txTasks := s.tasks.WithTx(tx)
		if err := txTasks.SaveTask(ctx, genTask); err != nil {
			return NewTopicServiceError("request_generation", "failed to save task", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.quota.InvalidateSnapshot(ctx, userID)

	log.Info("generation requested",
		slog.String("task_id", genTask.ID().String()),
		slog.String("topic_id", topicID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("card_count", count))

	event, err := events.NewEvent(events.EventTypeGenerationRequested, events.GenerationRequestedPayload{
		TaskID:  genTask.ID(),
		TopicID: topicID,
		UserID:  userID,
		Count:   count,
	})
	if err != nil {
		log.Error("failed to create generation event",
			slog.String("error", err.Error()),
			slog.String("task_id", genTask.ID().String()))
		return genTask, nil
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		// The task row is already committed as pending; runner recovery
		// requeues it on the next start.
		log.Warn("failed to emit generation event, task deferred to recovery",
			slog.String("error", err.Error()),
			slog.String("task_id", genTask.ID().String()))
	}

	return genTask, nil
}

// SetGenerationStatus implements TopicService.SetGenerationStatus.
func (s *topicServiceImpl) SetGenerationStatus(
	ctx context.Context,
	topicID uuid.UUID,
	status domain.GenerationStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.topics.UpdateGenerationStatus(ctx, topicID, status); err != nil {
		log.Error("failed to update generation status",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()),
			slog.String("status", string(status)))
		return NewTopicServiceError("set_generation_status", "failed to update status", err)
	}

	return nil
}

// getOwnedTopic loads a topic and enforces that it belongs to the caller.
// Store not-found errors pass through for the API layer to map to 404.
func (s *topicServiceImpl) getOwnedTopic(
	ctx context.Context,
	userID, topicID uuid.UUID,
) (*domain.Topic, error) {
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewTopicServiceError("get_topic", "failed to retrieve topic", err)
	}

	if topic.UserID != userID {
		return nil, ErrNotOwned
	}

	return topic, nil
}
