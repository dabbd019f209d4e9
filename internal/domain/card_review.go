package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewOutcome captures how well the user knew a card during a session.
type ReviewOutcome string

// Possible review outcome values
const (
	ReviewOutcomeAgain ReviewOutcome = "again"
	ReviewOutcomeGood  ReviewOutcome = "good"
	ReviewOutcomeEasy  ReviewOutcome = "easy"
)

// Common validation errors for CardReview
var (
	ErrReviewIDEmpty        = errors.New("review ID cannot be empty")
	ErrReviewSessionIDEmpty = errors.New("review session ID cannot be empty")
	ErrReviewCardIDEmpty    = errors.New("review card ID cannot be empty")
	ErrInvalidReviewOutcome = errors.New("invalid review outcome")
)

// CardReview records a single card outcome inside a study session.
type CardReview struct {
	ID         uuid.UUID     `json:"id"`
	SessionID  uuid.UUID     `json:"session_id"`
	CardID     uuid.UUID     `json:"card_id"`
	Outcome    ReviewOutcome `json:"outcome"`
	ReviewedAt time.Time     `json:"reviewed_at"`
}

// NewCardReview creates a new CardReview with the given session, card, and
// outcome. Returns an error if validation fails.
func NewCardReview(sessionID, cardID uuid.UUID, outcome ReviewOutcome) (*CardReview, error) {
	review := &CardReview{
		ID:         uuid.New(),
		SessionID:  sessionID,
		CardID:     cardID,
		Outcome:    outcome,
		ReviewedAt: time.Now().UTC(),
	}

	if err := review.Validate(); err != nil {
		return nil, err
	}

	return review, nil
}

// Validate checks if the CardReview has valid data.
// Returns an error if any field fails validation.
func (r *CardReview) Validate() error {
	if r.ID == uuid.Nil {
		return ErrReviewIDEmpty
	}

	if r.SessionID == uuid.Nil {
		return ErrReviewSessionIDEmpty
	}

	if r.CardID == uuid.Nil {
		return ErrReviewCardIDEmpty
	}

	if !isValidReviewOutcome(r.Outcome) {
		return ErrInvalidReviewOutcome
	}

	return nil
}

// isValidReviewOutcome checks if the given outcome is a valid ReviewOutcome.
func isValidReviewOutcome(outcome ReviewOutcome) bool {
	switch outcome {
	case ReviewOutcomeAgain, ReviewOutcomeGood, ReviewOutcomeEasy:
		return true
	default:
		return false
	}
}
