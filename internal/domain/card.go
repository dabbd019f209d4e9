package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardUserIDEmpty is returned when a card's user ID is empty or nil.
	ErrCardUserIDEmpty = errors.New("card user ID cannot be empty")

	// ErrCardTopicIDEmpty is returned when a card's topic ID is empty or nil.
	ErrCardTopicIDEmpty = errors.New("card topic ID cannot be empty")

	// ErrCardContentEmpty is returned when a card's content is empty.
	ErrCardContentEmpty = errors.New("card content cannot be empty")

	// ErrCardContentInvalid is returned when a card's content is not valid JSON.
	ErrCardContentInvalid = errors.New("card content must be valid JSON")

	// ErrCardSidesEmpty is returned when a card's front or back text is missing.
	ErrCardSidesEmpty = errors.New("card must have front and back text")
)

// Card represents a flashcard under a topic, either typed in by the user or
// produced by the generation pipeline. The content is stored as a JSONB
// structure, allowing for flexible card formats and future extensibility.
type Card struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	TopicID   uuid.UUID       `json:"topic_id"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CardContent is the canonical shape of the content field: the prompt side,
// the answer side, and an optional usage example sentence.
type CardContent struct {
	Front   string `json:"front"`
	Back    string `json:"back"`
	Example string `json:"example,omitempty"`
}

// NewCard creates a new Card with the given user ID, topic ID, and content.
// It generates a new UUID for the card ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewCard(userID, topicID uuid.UUID, content json.RawMessage) (*Card, error) {
	card := &Card{
		ID:        uuid.New(),
		UserID:    userID,
		TopicID:   topicID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// NewCardFromContent creates a new Card by marshaling the structured content.
// Both sides of the card must be non-empty.
func NewCardFromContent(userID, topicID uuid.UUID, content CardContent) (*Card, error) {
	if content.Front == "" || content.Back == "" {
		return nil, ErrCardSidesEmpty
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, ErrCardContentInvalid
	}

	return NewCard(userID, topicID, raw)
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}

	if c.TopicID == uuid.Nil {
		return ErrCardTopicIDEmpty
	}

	if len(c.Content) == 0 {
		return ErrCardContentEmpty
	}

	var js json.RawMessage
	if err := json.Unmarshal(c.Content, &js); err != nil {
		return ErrCardContentInvalid
	}

	return nil
}

// ParsedContent decodes the content field into its canonical shape.
func (c *Card) ParsedContent() (CardContent, error) {
	var content CardContent
	if err := json.Unmarshal(c.Content, &content); err != nil {
		return CardContent{}, ErrCardContentInvalid
	}
	return content, nil
}

// UpdateContent updates the card's content and the UpdatedAt timestamp.
// Returns an error if the new content is invalid.
func (c *Card) UpdateContent(content json.RawMessage) error {
	origContent := c.Content
	c.Content = content

	if err := c.Validate(); err != nil {
		c.Content = origContent
		return err
	}

	c.UpdatedAt = time.Now().UTC()
	return nil
}
