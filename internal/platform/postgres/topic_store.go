package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/store"
)

// PostgresTopicStore implements the store.TopicStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTopicStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTopicStore creates a new PostgreSQL implementation of the
// TopicStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTopicStore(db store.DBTX, logger *slog.Logger) *PostgresTopicStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTopicStore{
		db:     db,
		logger: logger.With(slog.String("component", "topic_store")),
	}
}

// Ensure PostgresTopicStore implements store.TopicStore interface
var _ store.TopicStore = (*PostgresTopicStore)(nil)

// Create implements store.TopicStore.Create
// Returns validation errors from the domain Topic if data is invalid.
// Returns store.ErrInvalidReference if the owning user does not exist.
func (s *PostgresTopicStore) Create(ctx context.Context, topic *domain.Topic) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := topic.Validate(); err != nil {
		log.Warn("topic validation failed during create",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()))
		return err
	}

	query := `
		INSERT INTO topics (id, user_id, title, description, generation_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		topic.ID,
		topic.UserID,
		topic.Title,
		topic.Description,
		topic.GenerationStatus,
		topic.CreatedAt,
		topic.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during topic creation",
				slog.String("topic_id", topic.ID.String()),
				slog.String("user_id", topic.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidReference, topic.UserID)
		}

		log.Error("failed to create topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()),
			slog.String("user_id", topic.UserID.String()))
		return MapError(err)
	}

	log.Info("topic created successfully",
		slog.String("topic_id", topic.ID.String()),
		slog.String("user_id", topic.UserID.String()))
	return nil
}

// GetByID implements store.TopicStore.GetByID
// Returns store.ErrTopicNotFound if the topic does not exist.
func (s *PostgresTopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, description, generation_status, created_at, updated_at
		FROM topics
		WHERE id = $1
	`

	var topic domain.Topic
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&topic.ID,
		&topic.UserID,
		&topic.Title,
		&topic.Description,
		&status,
		&topic.CreatedAt,
		&topic.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("topic not found", slog.String("topic_id", id.String()))
			return nil, store.ErrTopicNotFound
		}
		log.Error("failed to get topic by ID",
			slog.String("error", err.Error()),
			slog.String("topic_id", id.String()))
		return nil, MapError(err)
	}

	topic.GenerationStatus = domain.GenerationStatus(status)

	return &topic, nil
}

// ListByUserID implements store.TopicStore.ListByUserID
// Topics come back newest first. Returns an empty slice when the user has
// no topics yet.
func (s *PostgresTopicStore) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, description, generation_status, created_at, updated_at
		FROM topics
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query topics by user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var topics []*domain.Topic
	for rows.Next() {
		var topic domain.Topic
		var status string

		err := rows.Scan(
			&topic.ID,
			&topic.UserID,
			&topic.Title,
			&topic.Description,
			&status,
			&topic.CreatedAt,
			&topic.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan topic row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		topic.GenerationStatus = domain.GenerationStatus(status)
		topics = append(topics, &topic)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning topic rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if topics == nil {
		topics = []*domain.Topic{}
	}

	log.Debug("listed topics for user",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(topics)))
	return topics, nil
}

// UpdateGenerationStatus implements store.TopicStore.UpdateGenerationStatus
// Returns store.ErrTopicNotFound if the topic does not exist.
// Returns domain.ErrInvalidGenerationStatus for unknown statuses.
func (s *PostgresTopicStore) UpdateGenerationStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.GenerationStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsValid() {
		log.Warn("invalid generation status",
			slog.String("topic_id", id.String()),
			slog.String("status", string(status)))
		return domain.ErrInvalidGenerationStatus
	}

	query := `
		UPDATE topics
		SET generation_status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update topic generation status",
			slog.String("error", err.Error()),
			slog.String("topic_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTopicNotFound); err != nil {
		log.Debug("topic not found for status update",
			slog.String("topic_id", id.String()))
		return err
	}

	log.Info("topic generation status updated",
		slog.String("topic_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// Delete implements store.TopicStore.Delete
// Cards under the topic go with it via ON DELETE CASCADE.
// Returns store.ErrTopicNotFound if the topic does not exist.
func (s *PostgresTopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM topics WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTopicNotFound); err != nil {
		log.Debug("topic not found for delete",
			slog.String("topic_id", id.String()))
		return err
	}

	log.Info("topic deleted successfully", slog.String("topic_id", id.String()))
	return nil
}

// WithTx implements store.TopicStore.WithTx
func (s *PostgresTopicStore) WithTx(tx *sql.Tx) store.TopicStore {
	return &PostgresTopicStore{
		db:     tx,
		logger: s.logger,
	}
}
