package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewStudySession(t *testing.T) {
	t.Parallel() // Enable parallel execution
	userID := uuid.New()
	topicID := uuid.New()

	session, err := NewStudySession(userID, topicID)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if session.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if session.StartedAt.IsZero() {
		t.Error("Expected non-zero StartedAt time")
	}

	if session.IsCompleted() {
		t.Error("Expected new session to be open")
	}

	if session.CardsReviewed != 0 {
		t.Errorf("Expected zero cards reviewed, got %d", session.CardsReviewed)
	}

	// Missing IDs fail validation.
	if _, err := NewStudySession(uuid.Nil, topicID); err != ErrSessionUserIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrSessionUserIDEmpty, err)
	}
	if _, err := NewStudySession(userID, uuid.Nil); err != ErrSessionTopicIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrSessionTopicIDEmpty, err)
	}
}

func TestStudySessionComplete(t *testing.T) {
	t.Parallel() // Enable parallel execution

	session, err := NewStudySession(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := session.Complete(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !session.IsCompleted() {
		t.Error("Expected session to be completed")
	}

	// Double completion is a conflict.
	if err := session.Complete(); err != ErrSessionAlreadyCompleted {
		t.Errorf("Expected error %v, got %v", ErrSessionAlreadyCompleted, err)
	}
}

func TestStudySessionRecordReview(t *testing.T) {
	t.Parallel() // Enable parallel execution

	session, err := NewStudySession(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := session.RecordReview(); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if session.CardsReviewed != 3 {
		t.Errorf("Expected 3 cards reviewed, got %d", session.CardsReviewed)
	}

	// Reviews against a completed session are rejected.
	if err := session.Complete(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := session.RecordReview(); err != ErrSessionAlreadyCompleted {
		t.Errorf("Expected error %v, got %v", ErrSessionAlreadyCompleted, err)
	}
}
