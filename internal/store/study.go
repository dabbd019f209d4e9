package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
)

// StudySessionStore defines the interface for study session and review
// persistence. Sessions and their reviews live together because reviews are
// never read outside the context of a session.
type StudySessionStore interface {
	// Create saves a new study session to the store.
	// Returns ErrInvalidReference if the user or topic does not exist.
	Create(ctx context.Context, session *domain.StudySession) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error)

	// Update persists the session's completion state and review count.
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, session *domain.StudySession) error

	// CreateReview records a single card review under a session.
	// Returns ErrInvalidReference if the session or card does not exist.
	CreateReview(ctx context.Context, review *domain.CardReview) error

	// WithTx returns a new StudySessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) StudySessionStore
}
