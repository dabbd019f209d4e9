package generation

import (
	"context"

	"github.com/parlohq/parlo-api/internal/domain"
)

// Generator defines the interface for generating flashcards for a topic.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// GenerateCards creates count flashcards for the given topic. The
	// returned cards belong to the topic and its owner. Errors are one of
	// the sentinel values in errors.go so callers can distinguish blocked
	// content and transient failures from everything else.
	GenerateCards(ctx context.Context, topic *domain.Topic, count int) ([]*domain.Card, error)
}
