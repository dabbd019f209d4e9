package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/store"
)

// PostgresStudySessionStore implements the store.StudySessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStudySessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStudySessionStore creates a new PostgreSQL implementation of
// the StudySessionStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller. If
// logger is nil, a default logger will be used.
func NewPostgresStudySessionStore(db store.DBTX, logger *slog.Logger) *PostgresStudySessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStudySessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "study_session_store")),
	}
}

// Ensure PostgresStudySessionStore implements store.StudySessionStore interface
var _ store.StudySessionStore = (*PostgresStudySessionStore)(nil)

// Create implements store.StudySessionStore.Create
// Returns store.ErrInvalidReference if the user or topic does not exist.
func (s *PostgresStudySessionStore) Create(ctx context.Context, session *domain.StudySession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO study_sessions (id, user_id, topic_id, started_at, completed_at, cards_reviewed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.TopicID,
		session.StartedAt,
		session.CompletedAt,
		session.CardsReviewed,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during session creation",
				slog.String("session_id", session.ID.String()),
				slog.String("user_id", session.UserID.String()),
				slog.String("topic_id", session.TopicID.String()))
			return fmt.Errorf("%w: session references a missing user or topic",
				store.ErrInvalidReference)
		}

		log.Error("failed to create study session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	log.Info("study session created",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", session.UserID.String()),
		slog.String("topic_id", session.TopicID.String()))
	return nil
}

// GetByID implements store.StudySessionStore.GetByID
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresStudySessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, topic_id, started_at, completed_at, cards_reviewed
		FROM study_sessions
		WHERE id = $1
	`

	var session domain.StudySession
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TopicID,
		&session.StartedAt,
		&completedAt,
		&session.CardsReviewed,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("study session not found", slog.String("session_id", id.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get study session by ID",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	return &session, nil
}

// Update implements store.StudySessionStore.Update
// It persists completion state and the review counter.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresStudySessionStore) Update(ctx context.Context, session *domain.StudySession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		UPDATE study_sessions
		SET completed_at = $1, cards_reviewed = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		session.CompletedAt,
		session.CardsReviewed,
		session.ID,
	)

	if err != nil {
		log.Error("failed to update study session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrSessionNotFound); err != nil {
		log.Debug("study session not found for update",
			slog.String("session_id", session.ID.String()))
		return err
	}

	log.Info("study session updated",
		slog.String("session_id", session.ID.String()),
		slog.Int("cards_reviewed", session.CardsReviewed),
		slog.Bool("completed", session.IsCompleted()))
	return nil
}

// CreateReview implements store.StudySessionStore.CreateReview
// Returns store.ErrInvalidReference if the session or card does not exist.
func (s *PostgresStudySessionStore) CreateReview(ctx context.Context, review *domain.CardReview) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := review.Validate(); err != nil {
		log.Warn("review validation failed during create",
			slog.String("error", err.Error()),
			slog.String("review_id", review.ID.String()))
		return err
	}

	query := `
		INSERT INTO card_reviews (id, session_id, card_id, outcome, reviewed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.SessionID,
		review.CardID,
		review.Outcome,
		review.ReviewedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during review creation",
				slog.String("review_id", review.ID.String()),
				slog.String("session_id", review.SessionID.String()),
				slog.String("card_id", review.CardID.String()))
			return fmt.Errorf("%w: review references a missing session or card",
				store.ErrInvalidReference)
		}

		log.Error("failed to create card review",
			slog.String("error", err.Error()),
			slog.String("review_id", review.ID.String()))
		return MapError(err)
	}

	log.Debug("card review recorded",
		slog.String("review_id", review.ID.String()),
		slog.String("session_id", review.SessionID.String()),
		slog.String("outcome", string(review.Outcome)))
	return nil
}

// WithTx implements store.StudySessionStore.WithTx
func (s *PostgresStudySessionStore) WithTx(tx *sql.Tx) store.StudySessionStore {
	return &PostgresStudySessionStore{
		db:     tx,
		logger: s.logger,
	}
}
