package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for StudySession
var (
	ErrSessionIDEmpty          = errors.New("session ID cannot be empty")
	ErrSessionUserIDEmpty      = errors.New("session user ID cannot be empty")
	ErrSessionTopicIDEmpty     = errors.New("session topic ID cannot be empty")
	ErrSessionAlreadyCompleted = errors.New("session is already completed")
)

// StudySession is one sitting of flashcard review against a topic. Starting
// a session is the metered unit for the session quota; reviews inside it are
// free. CompletedAt stays nil while the session is open.
type StudySession struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	TopicID       uuid.UUID  `json:"topic_id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CardsReviewed int        `json:"cards_reviewed"`
}

// NewStudySession creates a new open StudySession for the given user and
// topic. It generates a new UUID for the session ID and stamps the start
// time. Returns an error if validation fails.
func NewStudySession(userID, topicID uuid.UUID) (*StudySession, error) {
	session := &StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		TopicID:   topicID,
		StartedAt: time.Now().UTC(),
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the StudySession has valid data.
// Returns an error if any field fails validation.
func (s *StudySession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSessionUserIDEmpty
	}

	if s.TopicID == uuid.Nil {
		return ErrSessionTopicIDEmpty
	}

	return nil
}

// IsCompleted reports whether the session has been closed.
func (s *StudySession) IsCompleted() bool {
	return s.CompletedAt != nil
}

// Complete closes the session. Completing an already-completed session is
// an error so double submissions surface as conflicts.
func (s *StudySession) Complete() error {
	if s.IsCompleted() {
		return ErrSessionAlreadyCompleted
	}

	now := time.Now().UTC()
	s.CompletedAt = &now
	return nil
}

// RecordReview counts one reviewed card against the open session.
func (s *StudySession) RecordReview() error {
	if s.IsCompleted() {
		return ErrSessionAlreadyCompleted
	}

	s.CardsReviewed++
	return nil
}
