package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/store"
)

// usageCounter selects which daily counter an increment targets.
type usageCounter string

const (
	counterSessions    usageCounter = "sessions_used"
	counterGenerations usageCounter = "generations_used"
)

// PostgresUsageStore implements the store.UsageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageStore creates a new PostgreSQL implementation of the
// UsageStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresUsageStore(db store.DBTX, logger *slog.Logger) *PostgresUsageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUsageStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_store")),
	}
}

// Ensure PostgresUsageStore implements store.UsageStore interface
var _ store.UsageStore = (*PostgresUsageStore)(nil)

// GetForDay implements store.UsageStore.GetForDay
// Returns store.ErrUsageNotFound when the user has no metered actions
// recorded for the day yet.
func (s *PostgresUsageStore) GetForDay(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) (*domain.DailyUsage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, usage_date, sessions_used, generations_used, updated_at
		FROM daily_usage
		WHERE user_id = $1 AND usage_date = $2
	`

	var usage domain.DailyUsage
	err := s.db.QueryRowContext(ctx, query, userID, domain.UsageDay(day)).Scan(
		&usage.UserID,
		&usage.UsageDate,
		&usage.SessionsUsed,
		&usage.GenerationsUsed,
		&usage.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no usage recorded for day",
				slog.String("user_id", userID.String()),
				slog.String("usage_date", domain.UsageDay(day).Format(domain.UsageDateLayout)))
			return nil, store.ErrUsageNotFound
		}
		log.Error("failed to get daily usage",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	// Postgres DATE columns come back at local midnight; pin to UTC.
	usage.UsageDate = domain.UsageDay(usage.UsageDate)

	return &usage, nil
}

// IncrementSessions implements store.UsageStore.IncrementSessions
func (s *PostgresUsageStore) IncrementSessions(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) (*domain.DailyUsage, error) {
	return s.increment(ctx, userID, day, counterSessions)
}

// IncrementGenerations implements store.UsageStore.IncrementGenerations
func (s *PostgresUsageStore) IncrementGenerations(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) (*domain.DailyUsage, error) {
	return s.increment(ctx, userID, day, counterGenerations)
}

// increment upserts the user's usage row for the day, adding one to the
// chosen counter. The ON CONFLICT arithmetic runs inside the database, so
// concurrent metered actions never lose counts.
func (s *PostgresUsageStore) increment(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
	counter usageCounter,
) (*domain.DailyUsage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var sessionsInit, generationsInit int
	switch counter {
	case counterSessions:
		sessionsInit = 1
	case counterGenerations:
		generationsInit = 1
	}

	// counter is one of two package constants, never caller input.
	query := fmt.Sprintf(`
		INSERT INTO daily_usage (user_id, usage_date, sessions_used, generations_used, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, usage_date)
		DO UPDATE SET %s = daily_usage.%s + 1, updated_at = EXCLUDED.updated_at
		RETURNING user_id, usage_date, sessions_used, generations_used, updated_at
	`, counter, counter)

	var usage domain.DailyUsage
	err := s.db.QueryRowContext(
		ctx,
		query,
		userID,
		domain.UsageDay(day),
		sessionsInit,
		generationsInit,
		time.Now().UTC(),
	).Scan(
		&usage.UserID,
		&usage.UsageDate,
		&usage.SessionsUsed,
		&usage.GenerationsUsed,
		&usage.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during usage increment",
				slog.String("user_id", userID.String()))
			return nil, fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidReference, userID)
		}

		log.Error("failed to increment daily usage",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("counter", string(counter)))
		return nil, MapError(err)
	}

	usage.UsageDate = domain.UsageDay(usage.UsageDate)

	log.Debug("daily usage incremented",
		slog.String("user_id", userID.String()),
		slog.String("counter", string(counter)),
		slog.Int("sessions_used", usage.SessionsUsed),
		slog.Int("generations_used", usage.GenerationsUsed))
	return &usage, nil
}

// WithTx implements store.UsageStore.WithTx
func (s *PostgresUsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return &PostgresUsageStore{
		db:     tx,
		logger: s.logger,
	}
}
