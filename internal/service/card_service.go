package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/store"
)

// CardServiceError is a custom error type for card service errors.
type CardServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CardServiceError.
func (e *CardServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CardServiceError) Unwrap() error {
	return e.Err
}

// NewCardServiceError creates a new CardServiceError.
func NewCardServiceError(operation, message string, err error) *CardServiceError {
	return &CardServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// CardService provides card reads and deletes for handlers, and the
// persistence step of the generation pipeline.
type CardService interface {
	// GetCard retrieves a card by its ID, enforcing ownership.
	GetCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error)

	// ListCardsByTopic retrieves all cards under a topic the user owns.
	ListCardsByTopic(ctx context.Context, userID, topicID uuid.UUID) ([]*domain.Card, error)

	// DeleteCard removes a card, enforcing ownership.
	DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error

	// SaveGeneratedCards inserts a generation run's cards and marks the
	// topic completed in a single transaction, so a topic never reads
	// completed with its cards missing.
	SaveGeneratedCards(ctx context.Context, topicID uuid.UUID, cards []*domain.Card) error
}

// cardServiceImpl implements the CardService interface
type cardServiceImpl struct {
	db     *sql.DB
	cards  store.CardStore
	topics store.TopicStore
	logger *slog.Logger
}

// NewCardService creates a new CardService.
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	db *sql.DB,
	cards store.CardStore,
	topics store.TopicStore,
	logger *slog.Logger,
) (CardService, error) {
	if db == nil {
		return nil, NewCardServiceError("create_service", "db cannot be nil", nil)
	}
	if cards == nil {
		return nil, NewCardServiceError("create_service", "card store cannot be nil", nil)
	}
	if topics == nil {
		return nil, NewCardServiceError("create_service", "topic store cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardServiceImpl{
		db:     db,
		cards:  cards,
		topics: topics,
		logger: logger.With(slog.String("component", "card_service")),
	}, nil
}

// GetCard implements CardService.GetCard.
func (s *cardServiceImpl) GetCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		log.Error("failed to retrieve card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, NewCardServiceError("get_card", "failed to retrieve card", err)
	}

	if card.UserID != userID {
		return nil, ErrNotOwned
	}

	return card, nil
}

// ListCardsByTopic implements CardService.ListCardsByTopic.
func (s *cardServiceImpl) ListCardsByTopic(
	ctx context.Context,
	userID, topicID uuid.UUID,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewCardServiceError("list_cards", "failed to retrieve topic", err)
	}
	if topic.UserID != userID {
		return nil, ErrNotOwned
	}

	cards, err := s.cards.ListByTopicID(ctx, topicID)
	if err != nil {
		log.Error("failed to list cards",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return nil, NewCardServiceError("list_cards", "failed to list cards", err)
	}

	return cards, nil
}

// DeleteCard implements CardService.DeleteCard.
func (s *cardServiceImpl) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return NewCardServiceError("delete_card", "failed to retrieve card", err)
	}
	if card.UserID != userID {
		return ErrNotOwned
	}

	if err := s.cards.Delete(ctx, cardID); err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return NewCardServiceError("delete_card", "failed to delete card", err)
	}

	log.Info("card deleted",
		slog.String("card_id", cardID.String()),
		slog.String("user_id", userID.String()))

	return nil
}

// SaveGeneratedCards implements CardService.SaveGeneratedCards.
func (s *cardServiceImpl) SaveGeneratedCards(
	ctx context.Context,
	topicID uuid.UUID,
	cards []*domain.Card,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return NewCardServiceError("save_generated_cards", "no cards to save", nil)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCards := s.cards.WithTx(tx)
		if err := txCards.CreateMultiple(ctx, cards); err != nil {
			return NewCardServiceError("save_generated_cards", "failed to save cards", err)
		}

		txTopics := s.topics.WithTx(tx)
		if err := txTopics.UpdateGenerationStatus(ctx, topicID, domain.GenerationStatusCompleted); err != nil {
			return NewCardServiceError("save_generated_cards", "failed to complete topic", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info("generated cards saved",
		slog.String("topic_id", topicID.String()),
		slog.Int("card_count", len(cards)))

	return nil
}
