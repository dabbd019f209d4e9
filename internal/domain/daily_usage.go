package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// UsageDateLayout is the calendar date format usage days are keyed by.
const UsageDateLayout = "2006-01-02"

// Common validation errors for DailyUsage
var (
	ErrUsageUserIDEmpty   = errors.New("usage user ID cannot be empty")
	ErrUsageDateZero      = errors.New("usage date cannot be zero")
	ErrUsageCountNegative = errors.New("usage counts cannot be negative")
)

// DailyUsage is one user's metered action counts for a single UTC calendar
// day. There is at most one row per (user, day); recording usage upserts it.
type DailyUsage struct {
	UserID          uuid.UUID `json:"user_id"`
	UsageDate       time.Time `json:"usage_date"`
	SessionsUsed    int       `json:"sessions_used"`
	GenerationsUsed int       `json:"generations_used"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewDailyUsage creates an empty usage record for the given user and day.
// The day is normalized to midnight UTC so date comparisons are exact.
func NewDailyUsage(userID uuid.UUID, day time.Time) (*DailyUsage, error) {
	usage := &DailyUsage{
		UserID:    userID,
		UsageDate: UsageDay(day),
		UpdatedAt: time.Now().UTC(),
	}

	if err := usage.Validate(); err != nil {
		return nil, err
	}

	return usage, nil
}

// Validate checks if the DailyUsage has valid data.
func (u *DailyUsage) Validate() error {
	if u.UserID == uuid.Nil {
		return ErrUsageUserIDEmpty
	}

	if u.UsageDate.IsZero() {
		return ErrUsageDateZero
	}

	if u.SessionsUsed < 0 || u.GenerationsUsed < 0 {
		return ErrUsageCountNegative
	}

	return nil
}

// DateString renders the usage day in the calendar date format snapshots
// carry (YYYY-MM-DD).
func (u *DailyUsage) DateString() string {
	return u.UsageDate.Format(UsageDateLayout)
}

// UsageDay truncates an instant to the start of its UTC calendar day.
func UsageDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
