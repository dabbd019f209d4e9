package domain

import "errors"

// Built-in plan names. Plan definitions are configuration, not persisted
// rows; the user row stores only the plan name.
const (
	PlanFree      = "free"
	PlanPro       = "pro"
	PlanUnlimited = "unlimited"
)

// Common validation errors for Plan
var (
	ErrPlanNameEmpty    = errors.New("plan name cannot be empty")
	ErrPlanLimitInvalid = errors.New("plan limits cannot be negative")
)

// Plan defines the daily quota limits a subscription tier grants. Unlimited
// plans ignore the numeric limits entirely; the flag is authoritative rather
// than any sentinel limit value.
type Plan struct {
	Name              string `json:"name"`
	SessionsPerDay    int    `json:"sessions_per_day"`
	GenerationsPerDay int    `json:"generations_per_day"`
	Unlimited         bool   `json:"unlimited"`
}

// Validate checks if the Plan has valid data.
func (p Plan) Validate() error {
	if p.Name == "" {
		return ErrPlanNameEmpty
	}
	if !p.Unlimited && (p.SessionsPerDay < 0 || p.GenerationsPerDay < 0) {
		return ErrPlanLimitInvalid
	}
	return nil
}

// Plans is an ordered set of plan definitions.
type Plans []Plan

// ByName finds a plan by name. The second return value reports whether the
// name was known.
func (ps Plans) ByName(name string) (Plan, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// DefaultPlans returns the built-in plan set used when configuration does
// not override it.
func DefaultPlans() Plans {
	return Plans{
		{Name: PlanFree, SessionsPerDay: 3, GenerationsPerDay: 2},
		{Name: PlanPro, SessionsPerDay: 20, GenerationsPerDay: 10},
		{Name: PlanUnlimited, Unlimited: true},
	}
}
