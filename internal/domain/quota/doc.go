// Package quota implements daily usage quota gating for metered actions.
//
// The central type is Gate, a small state machine consulted before a user
// starts a metered action (a study session or an AI card generation). The
// gate reads the user's current usage snapshot from an injected source,
// decides whether the action may proceed, and when it denies, holds the
// blocking-prompt state the presentation layer renders from, including a
// human-readable countdown to the next quota reset.
//
// Quotas reset at the start of the calendar day after the snapshot's usage
// date, interpreted in UTC. All time-dependent behavior flows through
// injected time functions so decisions are deterministic under test.
package quota
