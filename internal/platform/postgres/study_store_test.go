package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/postgres"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *domain.StudySession {
	t.Helper()

	session, err := domain.NewStudySession(uuid.New(), uuid.New())
	require.NoError(t, err)
	return session
}

func TestStudySessionStoreCreate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_sessions")).
		WithArgs(session.ID, session.UserID, session.TopicID, session.StartedAt, nil, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sessionStore.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionStoreCreateMissingReference(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_sessions")).
		WithArgs(session.ID, session.UserID, session.TopicID, session.StartedAt, nil, 0).
		WillReturnError(newPgError("23503"))

	err := sessionStore.Create(context.Background(), session)

	assert.ErrorIs(t, err, store.ErrInvalidReference)
}

func TestStudySessionStoreGetByIDOpen(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "topic_id", "started_at", "completed_at", "cards_reviewed",
	}).AddRow(
		session.ID.String(),
		session.UserID.String(),
		session.TopicID.String(),
		session.StartedAt,
		nil,
		3,
	)

	mock.ExpectQuery(regexp.QuoteMeta("FROM study_sessions")).
		WithArgs(session.ID).
		WillReturnRows(rows)

	got, err := sessionStore.GetByID(context.Background(), session.ID)

	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Nil(t, got.CompletedAt, "open session should have no completion time")
	assert.False(t, got.IsCompleted())
	assert.Equal(t, 3, got.CardsReviewed)
}

func TestStudySessionStoreGetByIDCompleted(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)
	completedAt := session.StartedAt.Add(10 * time.Minute)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "topic_id", "started_at", "completed_at", "cards_reviewed",
	}).AddRow(
		session.ID.String(),
		session.UserID.String(),
		session.TopicID.String(),
		session.StartedAt,
		completedAt,
		12,
	)

	mock.ExpectQuery(regexp.QuoteMeta("FROM study_sessions")).
		WithArgs(session.ID).
		WillReturnRows(rows)

	got, err := sessionStore.GetByID(context.Background(), session.ID)

	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.IsCompleted())
	assert.True(t, completedAt.Equal(*got.CompletedAt))
}

func TestStudySessionStoreGetByIDNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM study_sessions")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	got, err := sessionStore.GetByID(context.Background(), id)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestStudySessionStoreUpdate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)

	require.NoError(t, session.RecordReview())
	require.NoError(t, session.Complete())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE study_sessions")).
		WithArgs(sqlmock.AnyArg(), 1, session.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sessionStore.Update(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionStoreUpdateNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())
	session := newTestSession(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE study_sessions")).
		WithArgs(nil, 0, session.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := sessionStore.Update(context.Background(), session)

	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestStudySessionStoreCreateReview(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())

	review, err := domain.NewCardReview(uuid.New(), uuid.New(), domain.ReviewOutcomeGood)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO card_reviews")).
		WithArgs(review.ID, review.SessionID, review.CardID, domain.ReviewOutcomeGood, review.ReviewedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sessionStore.CreateReview(context.Background(), review))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionStoreCreateReviewMissingReference(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	sessionStore := postgres.NewPostgresStudySessionStore(db, discardLogger())

	review, err := domain.NewCardReview(uuid.New(), uuid.New(), domain.ReviewOutcomeAgain)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO card_reviews")).
		WithArgs(review.ID, review.SessionID, review.CardID, domain.ReviewOutcomeAgain, review.ReviewedAt).
		WillReturnError(newPgError("23503"))

	assert.ErrorIs(t,
		sessionStore.CreateReview(context.Background(), review),
		store.ErrInvalidReference)
}
