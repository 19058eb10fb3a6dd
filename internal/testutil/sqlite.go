// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/hrconsole/internal/db/bunx"
	"github.com/terraconstructs/hrconsole/internal/migrations"
	"github.com/uptrace/bun"
)

// NewSQLiteDB opens a private in-memory SQLite database with every migration
// applied. The database is closed when the test ends.
func NewSQLiteDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	require.NoError(t, migrations.Apply(context.Background(), db))
	return db
}
