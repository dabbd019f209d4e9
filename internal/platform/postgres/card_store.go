package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/store"
)

// cardColumns is the number of bound parameters per card row in the batch
// insert built by CreateMultiple.
const cardColumns = 6

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// CreateMultiple implements store.CardStore.CreateMultiple
// It validates every card up front and inserts the batch with a single
// multi-row statement, so a failure writes nothing.
// Returns store.ErrInvalidReference if a card points at a missing topic or user.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return err
		}
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO cards (id, user_id, topic_id, content, created_at, updated_at)
		VALUES `)

	args := make([]interface{}, 0, len(cards)*cardColumns)
	for i, card := range cards {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cardColumns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args,
			card.ID,
			card.UserID,
			card.TopicID,
			card.Content,
			card.CreatedAt,
			card.UpdatedAt,
		)
	}

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during card batch create",
				slog.Int("card_count", len(cards)))
			return fmt.Errorf("%w: card references a missing topic or user",
				store.ErrInvalidReference)
		}

		log.Error("failed to create cards",
			slog.String("error", err.Error()),
			slog.Int("card_count", len(cards)))
		return MapError(err)
	}

	log.Info("cards created successfully",
		slog.Int("card_count", len(cards)),
		slog.String("topic_id", cards[0].TopicID.String()))
	return nil
}

// GetByID implements store.CardStore.GetByID
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, topic_id, content, created_at, updated_at
		FROM cards
		WHERE id = $1
	`

	var card domain.Card
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.UserID,
		&card.TopicID,
		&card.Content,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}

	return &card, nil
}

// ListByTopicID implements store.CardStore.ListByTopicID
// Cards come back oldest first so deck order stays stable across calls.
// Returns an empty slice when the topic has no cards.
func (s *PostgresCardStore) ListByTopicID(ctx context.Context, topicID uuid.UUID) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, topic_id, content, created_at, updated_at
		FROM cards
		WHERE topic_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, topicID)
	if err != nil {
		log.Error("failed to query cards by topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var cards []*domain.Card
	for rows.Next() {
		var card domain.Card

		err := rows.Scan(
			&card.ID,
			&card.UserID,
			&card.TopicID,
			&card.Content,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan card row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning card rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if cards == nil {
		cards = []*domain.Card{}
	}

	log.Debug("listed cards for topic",
		slog.String("topic_id", topicID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// Delete implements store.CardStore.Delete
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM cards WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		log.Debug("card not found for delete",
			slog.String("card_id", id.String()))
		return err
	}

	log.Info("card deleted successfully", slog.String("card_id", id.String()))
	return nil
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}
