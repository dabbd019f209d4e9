// Package events is the in-process event bus. Services publish typed events
// (generation requests after a task row commits, plan-change navigation from
// the quota gate) without knowing which handlers consume them, which keeps
// the service and task packages free of direct dependencies on each other.
package events
