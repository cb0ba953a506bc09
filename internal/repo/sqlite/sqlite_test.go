package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/geocoder89/mural/internal/db"
	"github.com/stretchr/testify/require"
)

// newTestDB returns a migrated in-memory database private to the test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, db.SQLiteMemoryDSN(name))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.MigrateSQLite(ctx, conn))

	return conn
}
