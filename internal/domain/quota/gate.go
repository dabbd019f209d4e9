package quota

import (
	"sync"
	"time"
)

// Navigator receives the gate's plan-change navigation signal. The
// quotaPrompt flag tells the destination that the transition originated from
// quota exhaustion, so it should auto-present its upgrade offer.
type Navigator interface {
	NavigateToPlanChange(quotaPrompt bool)
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func(quotaPrompt bool)

// NavigateToPlanChange calls f.
func (f NavigatorFunc) NavigateToPlanChange(quotaPrompt bool) {
	f(quotaPrompt)
}

// State is the gate's renderable blocking-prompt state. TimeUntilReset is
// recomputed on every read, so the countdown stays current across renders
// without the gate mutating anything.
type State struct {
	Blocked        bool   `json:"blocked"`
	Type           Type   `json:"quota_type,omitempty"`
	TimeUntilReset string `json:"time_until_reset"`
}

// Gate decides whether a metered action may proceed and holds the
// blocking-prompt state machine: Idle until a check fails, Blocked(type)
// until dismissed or routed into the plan-change flow. A gate never mutates
// the snapshot it reads and never performs I/O; it is reusable indefinitely.
//
// Gates are shared per user across concurrent requests, so all state
// transitions are guarded by a mutex. Decisions are idempotent for a fixed
// snapshot and type: repeating a check yields the same result and state.
type Gate struct {
	source    Source
	navigator Navigator
	now       func() time.Time

	mu          sync.Mutex
	blocked     bool
	blockedType Type
}

// NewGate creates a gate over the given snapshot source and navigator,
// reading wall-clock time for countdown computation. A nil navigator is
// replaced with a no-op so OpenPlanChangeFlow stays safe to call.
func NewGate(source Source, navigator Navigator) *Gate {
	return NewGateWithTimeFunc(source, navigator, time.Now)
}

// NewGateWithTimeFunc creates a gate with an injected time source, so
// countdown values are deterministic under test.
func NewGateWithTimeFunc(source Source, navigator Navigator, now func() time.Time) *Gate {
	if navigator == nil {
		navigator = NavigatorFunc(func(bool) {})
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{
		source:    source,
		navigator: navigator,
		now:       now,
	}
}

// CheckAndProceed reports whether an action of the given type may proceed.
//
// The decision reads the current snapshot from the source: unlimited plans
// always proceed, otherwise the action proceeds only while the remaining
// count for the type is positive. An unavailable snapshot counts as zero
// remaining, so the gate fails closed rather than letting an unmetered
// action through.
//
// On denial the gate transitions to Blocked with the checked type recorded,
// which the presentation layer reads via State to show the right message.
// An allowed check leaves any existing blocked state untouched.
func (g *Gate) CheckAndProceed(t Type) bool {
	snap, ok := g.source.Snapshot()
	if ok && (snap.Unlimited || snap.Remaining(t) > 0) {
		return true
	}

	g.mu.Lock()
	g.blocked = true
	g.blockedType = t
	g.mu.Unlock()
	return false
}

// Dismiss clears the blocked state. It has no other effect and is safe to
// call from Idle.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	g.blocked = false
	g.blockedType = ""
	g.mu.Unlock()
}

// OpenPlanChangeFlow clears the blocked state and emits exactly one
// navigation signal carrying the quota-origin marker, directing the caller
// to the plan-change destination.
func (g *Gate) OpenPlanChangeFlow() {
	g.Dismiss()
	g.navigator.NavigateToPlanChange(true)
}

// State returns the current blocking-prompt state together with a freshly
// computed reset countdown from the snapshot's usage date.
func (g *Gate) State() State {
	g.mu.Lock()
	blocked, blockedType := g.blocked, g.blockedType
	g.mu.Unlock()

	var usageDate string
	if snap, ok := g.source.Snapshot(); ok {
		usageDate = snap.UsageDate
	}

	st := State{
		Blocked:        blocked,
		TimeUntilReset: TimeUntilReset(usageDate, g.now()),
	}
	if blocked {
		st.Type = blockedType
	}
	return st
}
