// Package postgres provides PostgreSQL-backed implementations of the data
// storage interfaces defined in the internal/store package. It owns query
// execution, mapping between domain entities and rows, and translation of
// driver errors into the store package's error taxonomy.
package postgres
