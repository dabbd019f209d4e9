package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
)

// CardStore defines the interface for flashcard data persistence.
type CardStore interface {
	// CreateMultiple saves a batch of cards in one statement, typically the
	// output of a generation run. The caller wraps it in a transaction when
	// atomicity with other writes is required.
	// Returns ErrInvalidReference if a card points at a missing topic or user.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByTopicID retrieves all cards under the given topic, oldest first
	// so deck order is stable.
	ListByTopicID(ctx context.Context, topicID uuid.UUID) ([]*domain.Card, error)

	// Delete removes a card from the store by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new CardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CardStore
}
