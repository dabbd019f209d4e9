package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/metrics"
)

// Status constants for CardGenerationTask
// These match the TaskStatus values defined in task.go
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Common errors
var (
	ErrNilTopicService = errors.New("topic service cannot be nil")
	ErrNilGenerator    = errors.New("generator cannot be nil")
	ErrNilCardService  = errors.New("card service cannot be nil")
	ErrEmptyTopicID    = errors.New("topic ID cannot be empty")
	ErrEmptyUserID     = errors.New("user ID cannot be empty")
	ErrNoCardCount     = errors.New("card count must be positive")
)

// TopicService is the slice of the topic service the generation task needs:
// loading the topic it generates for and moving it through pipeline states.
type TopicService interface {
	// GetTopic retrieves a topic, enforcing ownership.
	GetTopic(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error)

	// SetGenerationStatus moves a topic through the generation states.
	SetGenerationStatus(ctx context.Context, topicID uuid.UUID, status domain.GenerationStatus) error
}

// Generator defines the interface for flashcard generation services
type Generator interface {
	// GenerateCards produces count flashcards for the topic
	GenerateCards(ctx context.Context, topic *domain.Topic, count int) ([]*domain.Card, error)
}

// CardService persists a generation run's output.
type CardService interface {
	// SaveGeneratedCards inserts the cards and marks the topic completed in
	// a single transaction
	SaveGeneratedCards(ctx context.Context, topicID uuid.UUID, cards []*domain.Card) error
}

// cardGenerationPayload represents the serialized data stored in the task
type cardGenerationPayload struct {
	TopicID uuid.UUID `json:"topic_id"`
	UserID  uuid.UUID `json:"user_id"`
	Count   int       `json:"count"`
}

// CardGenerationTask implements the Task interface for generating
// flashcards under a topic
type CardGenerationTask struct {
	id        uuid.UUID
	topicID   uuid.UUID
	userID    uuid.UUID
	count     int
	topics    TopicService
	generator Generator
	cards     CardService
	logger    *slog.Logger
	status    string
}

// newCardGenerationTask builds a task with an explicit ID, shared by the
// factory's fresh-task and reconstruction paths.
func newCardGenerationTask(
	id, topicID, userID uuid.UUID,
	count int,
	topics TopicService,
	generator Generator,
	cards CardService,
	logger *slog.Logger,
) (*CardGenerationTask, error) {
	if topics == nil {
		return nil, ErrNilTopicService
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if cards == nil {
		return nil, ErrNilCardService
	}
	if logger == nil {
		logger = slog.Default()
	}
	if topicID == uuid.Nil {
		return nil, ErrEmptyTopicID
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if count <= 0 {
		return nil, ErrNoCardCount
	}

	return &CardGenerationTask{
		id:        id,
		topicID:   topicID,
		userID:    userID,
		count:     count,
		topics:    topics,
		generator: generator,
		cards:     cards,
		logger:    logger.With("task_type", TaskTypeCardGeneration, "topic_id", topicID),
		status:    statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *CardGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CardGenerationTask) Type() string {
	return TaskTypeCardGeneration
}

// Payload returns the task data as a byte slice
func (t *CardGenerationTask) Payload() []byte {
	payload := cardGenerationPayload{
		TopicID: t.topicID,
		UserID:  t.userID,
		Count:   t.count,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *CardGenerationTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the card generation pipeline for one topic: load the topic,
// mark it processing, generate cards, and save them together with the
// completed status. Any failure marks the topic failed; the usage recorded
// when the request was accepted is never refunded.
func (t *CardGenerationTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting card generation task", "card_count", t.count)

	started := time.Now()
	err := t.run(ctx)
	metrics.GenerationDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		t.status = statusFailed
		metrics.GenerationTasksTotal.WithLabelValues(statusFailed).Inc()
		return err
	}

	t.status = statusCompleted
	metrics.GenerationTasksTotal.WithLabelValues(statusCompleted).Inc()
	return nil
}

func (t *CardGenerationTask) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Retrieve the topic
	topic, err := t.topics.GetTopic(ctx, t.userID, t.topicID)
	if err != nil {
		t.logger.Error("failed to retrieve topic", "error", err)
		return fmt.Errorf("failed to retrieve topic: %w", err)
	}

	// 2. Mark the topic as processing
	if err := t.topics.SetGenerationStatus(ctx, t.topicID, domain.GenerationStatusProcessing); err != nil {
		t.logger.Error("failed to mark topic processing", "error", err)
		return fmt.Errorf("failed to mark topic processing: %w", err)
	}

	// 3. Generate cards
	t.logger.Info("generating cards", "title", topic.Title)
	cards, err := t.generator.GenerateCards(ctx, topic, t.count)
	if err != nil {
		t.failTopic(ctx)
		t.logger.Error("failed to generate cards", "error", err)
		return fmt.Errorf("failed to generate cards: %w", err)
	}

	// A run that produced nothing would leave the user a completed topic
	// with an empty deck, so treat it as a failure.
	if len(cards) == 0 {
		t.failTopic(ctx)
		t.logger.Error("generation produced no cards")
		return errors.New("generation produced no cards")
	}

	// 4. Save the cards and complete the topic in one transaction
	if err := t.cards.SaveGeneratedCards(ctx, t.topicID, cards); err != nil {
		t.failTopic(ctx)
		t.logger.Error("failed to save generated cards", "error", err)
		return fmt.Errorf("failed to save generated cards: %w", err)
	}

	t.logger.Info("card generation task completed", "cards_generated", len(cards))
	return nil
}

// failTopic marks the topic failed, logging rather than failing the task
// again if the status write itself errors.
func (t *CardGenerationTask) failTopic(ctx context.Context) {
	if err := t.topics.SetGenerationStatus(ctx, t.topicID, domain.GenerationStatusFailed); err != nil {
		t.logger.Error("failed to mark topic failed", "error", err)
	}
}
