package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// IsSQLite checks if the database is SQLite
func IsSQLite(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL checks if the database is PostgreSQL
func IsPostgreSQL(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

// timestampType is the column type used for hand-written DDL so that raw
// tables match what bun generates for time.Time fields.
func timestampType(db bun.IDB) string {
	if IsPostgreSQL(db) {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}
