package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the state of AI card generation for a topic.
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusNone       GenerationStatus = "none"
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Title and description length bounds for topics.
const (
	MaxTopicTitleLength       = 100
	MaxTopicDescriptionLength = 500
)

// Common validation errors for Topic
var (
	ErrTopicIDEmpty            = errors.New("topic ID cannot be empty")
	ErrTopicUserIDEmpty        = errors.New("topic user ID cannot be empty")
	ErrTopicTitleEmpty         = errors.New("topic title cannot be empty")
	ErrTopicTitleTooLong       = errors.New("topic title cannot exceed 100 characters")
	ErrTopicDescriptionTooLong = errors.New("topic description cannot exceed 500 characters")
	ErrInvalidGenerationStatus = errors.New("invalid generation status")
	ErrGenerationAlreadyQueued = errors.New("generation already pending or processing")
)

// Topic is a user-created study subject that flashcards are grouped under.
// It tracks whether AI card generation has been requested and how far the
// pipeline got.
type Topic struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	GenerationStatus GenerationStatus `json:"generation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewTopic creates a new Topic with the given owner, title, and description.
// It generates a new UUID for the topic ID, starts with no generation
// activity, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTopic(userID uuid.UUID, title, description string) (*Topic, error) {
	topic := &Topic{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            title,
		Description:      description,
		GenerationStatus: GenerationStatusNone,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if err := topic.Validate(); err != nil {
		return nil, err
	}

	return topic, nil
}

// Validate checks if the Topic has valid data.
// Returns an error if any field fails validation.
func (t *Topic) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTopicIDEmpty
	}

	if t.UserID == uuid.Nil {
		return ErrTopicUserIDEmpty
	}

	if t.Title == "" {
		return ErrTopicTitleEmpty
	}

	if len(t.Title) > MaxTopicTitleLength {
		return ErrTopicTitleTooLong
	}

	if len(t.Description) > MaxTopicDescriptionLength {
		return ErrTopicDescriptionTooLong
	}

	if !t.GenerationStatus.IsValid() {
		return ErrInvalidGenerationStatus
	}

	return nil
}

// QueueGeneration transitions the topic into the pending generation state.
// Only topics with no generation activity, or whose previous run completed
// or failed, may queue a new one.
func (t *Topic) QueueGeneration() error {
	switch t.GenerationStatus {
	case GenerationStatusPending, GenerationStatusProcessing:
		return ErrGenerationAlreadyQueued
	}

	t.GenerationStatus = GenerationStatusPending
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateGenerationStatus updates the topic's generation status and bumps
// the UpdatedAt timestamp. Returns an error if the new status is invalid.
func (t *Topic) UpdateGenerationStatus(status GenerationStatus) error {
	if !status.IsValid() {
		return ErrInvalidGenerationStatus
	}

	t.GenerationStatus = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsValid reports whether the status is one of the known generation states.
func (s GenerationStatus) IsValid() bool {
	switch s {
	case GenerationStatusNone, GenerationStatusPending, GenerationStatusProcessing,
		GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}
