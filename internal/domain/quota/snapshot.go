package quota

// Type identifies which metered action a quota check governs.
type Type string

const (
	// TypeSession meters starting a study session.
	TypeSession Type = "session"

	// TypeGeneration meters requesting AI card generation.
	TypeGeneration Type = "generation"
)

// IsValid reports whether t is a known quota type.
func (t Type) IsValid() bool {
	switch t {
	case TypeSession, TypeGeneration:
		return true
	default:
		return false
	}
}

// UnlimitedSentinel is the limit/remaining value presented for plans with no
// numeric cap. The Unlimited flag on the snapshot is authoritative; the
// sentinel exists only so serialized snapshots stay unambiguous.
const UnlimitedSentinel = -1

// Snapshot is a point-in-time view of a user's daily usage against their
// plan limits. It is assembled by the subscription service and read, never
// mutated, by the gate. UsageDate is the calendar date (YYYY-MM-DD, UTC) the
// counts were recorded against; it is empty until the first metered action
// of the day has been recorded.
type Snapshot struct {
	SessionsUsed         int    `json:"sessions_used"`
	SessionsLimit        int    `json:"sessions_limit"`
	SessionsRemaining    int    `json:"sessions_remaining"`
	GenerationsUsed      int    `json:"generations_used"`
	GenerationsLimit     int    `json:"generations_limit"`
	GenerationsRemaining int    `json:"generations_remaining"`
	PlanType             string `json:"plan_type"`
	UsageDate            string `json:"usage_date"`
	Unlimited            bool   `json:"unlimited"`
}

// Remaining returns the remaining count governing the given quota type.
// Unknown types have zero remaining, so checks against them fail closed.
func (s Snapshot) Remaining(t Type) int {
	switch t {
	case TypeSession:
		return s.SessionsRemaining
	case TypeGeneration:
		return s.GenerationsRemaining
	default:
		return 0
	}
}

// Source supplies the current usage snapshot for one user. Implementations
// must return the snapshot by value and report false when no snapshot is
// available yet; the gate treats an unavailable snapshot as zero remaining.
type Source interface {
	Snapshot() (Snapshot, bool)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func() (Snapshot, bool)

// Snapshot calls f.
func (f SourceFunc) Snapshot() (Snapshot, bool) {
	return f()
}
