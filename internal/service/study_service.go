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
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/platform/metrics"
	"github.com/parlohq/parlo-api/internal/store"
)

// StudyService provides the session-gated study flow: starting sessions,
// recording card reviews, and completing sessions.
type StudyService interface {
	// StartSession runs the session-gated entry point: it checks the session
	// quota and, when allowed, creates the session and records usage in one
	// transaction. Returns *QuotaExhaustedError on deny.
	StartSession(ctx context.Context, userID, topicID uuid.UUID) (*domain.StudySession, error)

	// SubmitReview records one card outcome against an open session and
	// bumps the session's review count atomically.
	SubmitReview(ctx context.Context, userID, sessionID, cardID uuid.UUID, outcome domain.ReviewOutcome) (*domain.CardReview, error)

	// CompleteSession closes an open session. Completing twice returns
	// ErrSessionCompleted.
	CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*domain.StudySession, error)
}

// StudyServiceError wraps errors from the study service with context.
type StudyServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for StudyServiceError.
func (e *StudyServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("study service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("study service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StudyServiceError) Unwrap() error {
	return e.Err
}

// NewStudyServiceError creates a new StudyServiceError.
func NewStudyServiceError(operation, message string, err error) *StudyServiceError {
	return &StudyServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// studyServiceImpl implements the StudyService interface
type studyServiceImpl struct {
	db       *sql.DB
	sessions store.StudySessionStore
	topics   store.TopicStore
	quota    QuotaService
	logger   *slog.Logger
}

// NewStudyService creates a new StudyService.
// It returns an error if any of the required dependencies are nil.
func NewStudyService(
	db *sql.DB,
	sessions store.StudySessionStore,
	topics store.TopicStore,
	quotaSvc QuotaService,
	logger *slog.Logger,
) (StudyService, error) {
	if db == nil {
		return nil, NewStudyServiceError("create_service", "db cannot be nil", nil)
	}
	if sessions == nil {
		return nil, NewStudyServiceError("create_service", "session store cannot be nil", nil)
	}
	if topics == nil {
		return nil, NewStudyServiceError("create_service", "topic store cannot be nil", nil)
	}
	if quotaSvc == nil {
		return nil, NewStudyServiceError("create_service", "quota service cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &studyServiceImpl{
		db:       db,
		sessions: sessions,
		topics:   topics,
		quota:    quotaSvc,
		logger:   logger.With(slog.String("component", "study_service")),
	}, nil
}

// StartSession implements StudyService.StartSession.
//
// The session row and the usage increment commit together, so a crash can
// never hand out a free session or charge for one that does not exist.
func (s *studyServiceImpl) StartSession(
	ctx context.Context,
	userID, topicID uuid.UUID,
) (*domain.StudySession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewStudyServiceError("start_session", "failed to retrieve topic", err)
	}
	if topic.UserID != userID {
		return nil, ErrNotOwned
	}

	decision, err := s.quota.CheckQuota(ctx, userID, quota.TypeSession)
	if err != nil {
		return nil, NewStudyServiceError("start_session", "failed to check quota", err)
	}
	if !decision.Allowed {
		return nil, &QuotaExhaustedError{
			Type:     quota.TypeSession,
			State:    decision.State,
			PlanType: decision.Snapshot.PlanType,
		}
	}

	session, err := domain.NewStudySession(userID, topicID)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txSessions := s.sessions.WithTx(tx)
		if err := txSessions.Create(ctx, session); err != nil {
			return NewStudyServiceError("start_session", "failed to save session", err)
		}

		if _, err := s.quota.RecordUsageInTx(ctx, tx, userID, quota.TypeSession); err != nil {
			return NewStudyServiceError("start_session", "failed to record usage", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.quota.InvalidateSnapshot(ctx, userID)
	metrics.StudySessionsStartedTotal.WithLabelValues(decision.Snapshot.PlanType).Inc()

	log.Info("study session started",
		slog.String("session_id", session.ID.String()),
		slog.String("topic_id", topicID.String()),
		slog.String("user_id", userID.String()))

	return session, nil
}

// SubmitReview implements StudyService.SubmitReview.
func (s *studyServiceImpl) SubmitReview(
	ctx context.Context,
	userID, sessionID, cardID uuid.UUID,
	outcome domain.ReviewOutcome,
) (*domain.CardReview, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.getOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.RecordReview(); err != nil {
		if errors.Is(err, domain.ErrSessionAlreadyCompleted) {
			return nil, ErrSessionCompleted
		}
		return nil, NewStudyServiceError("submit_review", "failed to record review", err)
	}

	review, err := domain.NewCardReview(sessionID, cardID, outcome)
	if err != nil {
		return nil, err
	}

	// Insert the review and bump the session counter together.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txSessions := s.sessions.WithTx(tx)
		if err := txSessions.CreateReview(ctx, review); err != nil {
			return NewStudyServiceError("submit_review", "failed to save review", err)
		}
		if err := txSessions.Update(ctx, session); err != nil {
			return NewStudyServiceError("submit_review", "failed to update session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("card review recorded",
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("outcome", string(outcome)))

	return review, nil
}

// CompleteSession implements StudyService.CompleteSession.
func (s *studyServiceImpl) CompleteSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*domain.StudySession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.getOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Complete(); err != nil {
		if errors.Is(err, domain.ErrSessionAlreadyCompleted) {
			return nil, ErrSessionCompleted
		}
		return nil, NewStudyServiceError("complete_session", "failed to complete session", err)
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		log.Error("failed to save completed session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, NewStudyServiceError("complete_session", "failed to update session", err)
	}

	log.Info("study session completed",
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("cards_reviewed", session.CardsReviewed))

	return session, nil
}

// getOwnedSession loads a session and enforces that it belongs to the caller.
func (s *studyServiceImpl) getOwnedSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*domain.StudySession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewStudyServiceError("get_session", "failed to retrieve session", err)
	}

	if session.UserID != userID {
		return nil, ErrNotOwned
	}

	return session, nil
}
