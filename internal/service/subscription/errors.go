package subscription

import "errors"

var (
	// ErrUnknownPlan indicates a plan-change request named a plan that is
	// not defined. The API layer maps this to 422.
	ErrUnknownPlan = errors.New("unknown plan type")
)
