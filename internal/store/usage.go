package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
)

// UsageStore defines the interface for daily usage counters. Each user has
// at most one row per UTC calendar day; increments upsert that row
// atomically so concurrent metered actions never lose counts.
type UsageStore interface {
	// GetForDay retrieves the usage row for the given user and day.
	// The day is normalized to its UTC calendar date.
	// Returns ErrUsageNotFound when no metered action has been recorded yet.
	GetForDay(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error)

	// IncrementSessions adds one session to the user's counters for the
	// given day, creating the row if needed, and returns the updated row.
	IncrementSessions(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error)

	// IncrementGenerations adds one generation to the user's counters for
	// the given day, creating the row if needed, and returns the updated row.
	IncrementGenerations(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailyUsage, error)

	// WithTx returns a new UsageStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UsageStore
}
