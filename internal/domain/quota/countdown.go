package quota

import (
	"fmt"
	"time"
)

// usageDateLayout is the calendar date format carried on snapshots.
const usageDateLayout = "2006-01-02"

// fullPeriod is returned when no usage date is known: without better
// information the caller must assume the entire quota period remains.
const fullPeriod = "24h"

// TimeUntilReset formats the time remaining until the quota reset that
// follows usageDate, as a human-readable duration for the blocking prompt.
//
// The reset instant is midnight UTC at the start of the calendar day after
// usageDate. The returned string decomposes the difference to now into whole
// hours and remaining whole minutes:
//
//   - "24h" when usageDate is empty or unparseable (full period assumed)
//   - "0m" when the reset is already due (never a negative duration)
//   - "{h}h {m}m" when at least one whole hour remains, e.g. "14h 0m"
//   - "{m}m" when under an hour remains, e.g. "2m" (the zero-hours unit
//     is omitted, never "0h 2m")
//
// Seconds are truncated and a days unit never appears; a daily quota period
// is bounded by 24 hours. The result is a pure function of (usageDate, now),
// so callers may re-evaluate it on every render.
func TimeUntilReset(usageDate string, now time.Time) string {
	if usageDate == "" {
		return fullPeriod
	}

	day, err := time.Parse(usageDateLayout, usageDate)
	if err != nil {
		// Malformed dates are treated the same as absent ones rather than
		// surfacing a parse error in a display path.
		return fullPeriod
	}

	reset := day.AddDate(0, 0, 1)
	diff := reset.Sub(now)
	if diff <= 0 {
		return "0m"
	}

	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
