// Package store defines interfaces for data persistence operations,
// the error taxonomy implementations map database failures onto, and the
// transaction helper services compose multi-store writes with. Concrete
// implementations live in internal/platform/postgres.
package store
