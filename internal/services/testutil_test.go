package services

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nliest/converse-be/internal/database"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a migrated sqlite database under the test's temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
