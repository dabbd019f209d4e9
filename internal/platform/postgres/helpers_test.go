package postgres_test

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockDB creates a sqlmock-backed database handle for store tests.
// The connection is closed automatically when the test finishes.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock database")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, mock
}

// discardLogger returns a logger whose output goes nowhere, keeping store
// logging out of test output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
