package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// CardGenerationTaskFactory creates CardGenerationTask instances
type CardGenerationTaskFactory struct {
	topics    TopicService
	generator Generator
	cards     CardService
	logger    *slog.Logger
}

// NewCardGenerationTaskFactory creates a new factory for CardGenerationTasks
func NewCardGenerationTaskFactory(
	topics TopicService,
	generator Generator,
	cards CardService,
	logger *slog.Logger,
) *CardGenerationTaskFactory {
	return &CardGenerationTaskFactory{
		topics:    topics,
		generator: generator,
		cards:     cards,
		logger:    logger.With("component", "card_generation_task_factory"),
	}
}

// NewTask creates a fresh CardGenerationTask for the given topic
func (f *CardGenerationTaskFactory) NewTask(topicID, userID uuid.UUID, count int) (Task, error) {
	return newCardGenerationTask(
		uuid.New(),
		topicID,
		userID,
		count,
		f.topics,
		f.generator,
		f.cards,
		f.logger,
	)
}

// Reconstruct rebuilds a CardGenerationTask from a persisted row so that
// recovered tasks execute with live dependencies. It implements Reconstructor.
func (f *CardGenerationTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	var p cardGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card generation payload: %w", err)
	}

	return newCardGenerationTask(
		id,
		p.TopicID,
		p.UserID,
		p.Count,
		f.topics,
		f.generator,
		f.cards,
		f.logger,
	)
}
