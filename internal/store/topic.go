package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
)

// TopicStore defines the interface for topic data persistence.
type TopicStore interface {
	// Create saves a new topic to the store.
	// Returns validation errors from the domain Topic if data is invalid.
	// Returns ErrInvalidReference if the owning user does not exist.
	Create(ctx context.Context, topic *domain.Topic) error

	// GetByID retrieves a topic by its unique ID.
	// Returns ErrTopicNotFound if the topic does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error)

	// ListByUserID retrieves all topics owned by the given user,
	// newest first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error)

	// UpdateGenerationStatus sets the generation status of a topic.
	// Returns ErrTopicNotFound if the topic does not exist.
	UpdateGenerationStatus(ctx context.Context, id uuid.UUID, status domain.GenerationStatus) error

	// Delete removes a topic and, via database cascade, its cards.
	// Returns ErrTopicNotFound if the topic does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TopicStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TopicStore
}
