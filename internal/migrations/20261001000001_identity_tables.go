package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates the identity store and role assignment tables
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	if _, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating sessions table...")
	if _, err := db.NewCreateTable().
		Model((*models.Session)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`); err != nil {
		return fmt.Errorf("failed to create sessions user_id index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`); err != nil {
		return fmt.Errorf("failed to create sessions expires_at index: %w", err)
	}
	fmt.Println(" OK")

	// role_assignments is written by hand so the role tag gets a CHECK
	// constraint on both dialects. principal_id is deliberately not a foreign
	// key: principals are owned by the identity store.
	fmt.Print(" [up] creating role_assignments table...")
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS role_assignments (
			principal_id VARCHAR NOT NULL PRIMARY KEY,
			role VARCHAR NOT NULL CHECK (role IN ('admin', 'user', 'blocked')),
			assigned_by VARCHAR NOT NULL,
			updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, timestampType(db)))
	if err != nil {
		return fmt.Errorf("failed to create role_assignments table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_role_assignments_role ON role_assignments(role)`); err != nil {
		return fmt.Errorf("failed to create role_assignments role index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating used_setup_tokens table...")
	if _, err := db.NewCreateTable().
		Model((*models.UsedSetupToken)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create used_setup_tokens table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

func down_20261001000001(ctx context.Context, db *bun.DB) error {
	for _, table := range []string{"used_setup_tokens", "role_assignments", "sessions", "users"} {
		fmt.Printf(" [down] dropping %s table...", table)
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
