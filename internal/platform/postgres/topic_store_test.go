package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/postgres"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topicColumns = `id, user_id, title, description, generation_status, created_at, updated_at`

func newTestTopic(t *testing.T) *domain.Topic {
	t.Helper()

	topic, err := domain.NewTopic(uuid.New(), "Spanish greetings", "Common hellos and goodbyes")
	require.NoError(t, err)
	return topic
}

func topicRows(topics ...*domain.Topic) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "generation_status", "created_at", "updated_at",
	})
	for _, topic := range topics {
		rows.AddRow(
			topic.ID.String(),
			topic.UserID.String(),
			topic.Title,
			topic.Description,
			string(topic.GenerationStatus),
			topic.CreatedAt,
			topic.UpdatedAt,
		)
	}
	return rows
}

func TestTopicStoreCreate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	topic := newTestTopic(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO topics")).
		WithArgs(
			topic.ID,
			topic.UserID,
			topic.Title,
			topic.Description,
			domain.GenerationStatusNone,
			topic.CreatedAt,
			topic.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, topicStore.Create(context.Background(), topic))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicStoreCreateMissingUser(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	topic := newTestTopic(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO topics")).
		WithArgs(
			topic.ID,
			topic.UserID,
			topic.Title,
			topic.Description,
			domain.GenerationStatusNone,
			topic.CreatedAt,
			topic.UpdatedAt,
		).
		WillReturnError(newPgError("23503"))

	err := topicStore.Create(context.Background(), topic)

	assert.ErrorIs(t, err, store.ErrInvalidReference)
}

func TestTopicStoreGetByID(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	topic := newTestTopic(t)

	mock.ExpectQuery(regexp.QuoteMeta(topicColumns)).
		WithArgs(topic.ID).
		WillReturnRows(topicRows(topic))

	got, err := topicStore.GetByID(context.Background(), topic.ID)

	require.NoError(t, err)
	assert.Equal(t, topic.ID, got.ID)
	assert.Equal(t, topic.Title, got.Title)
	assert.Equal(t, domain.GenerationStatusNone, got.GenerationStatus)
}

func TestTopicStoreGetByIDNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(topicColumns)).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	got, err := topicStore.GetByID(context.Background(), id)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, store.ErrTopicNotFound)
}

func TestTopicStoreListByUserID(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())

	userID := uuid.New()
	first, err := domain.NewTopic(userID, "Verbs", "")
	require.NoError(t, err)
	second, err := domain.NewTopic(userID, "Nouns", "")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(userID).
		WillReturnRows(topicRows(second, first))

	topics, err := topicStore.ListByUserID(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, second.ID, topics[0].ID)
	assert.Equal(t, first.ID, topics[1].ID)
}

func TestTopicStoreListByUserIDEmpty(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(userID).
		WillReturnRows(topicRows())

	topics, err := topicStore.ListByUserID(context.Background(), userID)

	require.NoError(t, err)
	assert.NotNil(t, topics, "empty result should be a slice, not nil")
	assert.Empty(t, topics)
}

func TestTopicStoreUpdateGenerationStatus(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics")).
		WithArgs(domain.GenerationStatusCompleted, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := topicStore.UpdateGenerationStatus(context.Background(), id, domain.GenerationStatusCompleted)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicStoreUpdateGenerationStatusInvalid(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())

	// An unknown status is rejected before any SQL is issued.
	err := topicStore.UpdateGenerationStatus(context.Background(), uuid.New(), "exploded")

	assert.ErrorIs(t, err, domain.ErrInvalidGenerationStatus)
}

func TestTopicStoreUpdateGenerationStatusNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics")).
		WithArgs(domain.GenerationStatusFailed, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := topicStore.UpdateGenerationStatus(context.Background(), id, domain.GenerationStatusFailed)

	assert.ErrorIs(t, err, store.ErrTopicNotFound)
}

func TestTopicStoreDelete(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM topics")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, topicStore.Delete(context.Background(), id))
}

func TestTopicStoreDeleteNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	topicStore := postgres.NewPostgresTopicStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM topics")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, topicStore.Delete(context.Background(), id), store.ErrTopicNotFound)
}
