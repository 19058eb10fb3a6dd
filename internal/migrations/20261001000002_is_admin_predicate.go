package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000002, down_20261001000002)
}

// up_20261001000002 installs the trusted admin predicate on PostgreSQL.
//
// hr_is_admin runs as its owner (SECURITY DEFINER), so it reads
// role_assignments without passing through the row policy below. The row
// policy itself calls hr_is_admin, which is what keeps the policy from
// recursing into its own table. SQLite has neither functions nor row
// policies; the repository evaluates the same EXISTS query directly.
func up_20261001000002(ctx context.Context, db *bun.DB) error {
	if !IsPostgreSQL(db) {
		fmt.Println(" [up] hr_is_admin predicate: skipped (sqlite)")
		return nil
	}

	fmt.Print(" [up] creating hr_is_admin predicate...")
	_, err := db.ExecContext(ctx, `
		CREATE OR REPLACE FUNCTION hr_is_admin(p_principal_id text)
		RETURNS boolean
		LANGUAGE sql
		STABLE
		SECURITY DEFINER
		SET search_path = public
		AS $$
			SELECT EXISTS (
				SELECT 1 FROM role_assignments
				WHERE principal_id = p_principal_id AND role = 'admin'
			)
		$$`)
	if err != nil {
		return fmt.Errorf("failed to create hr_is_admin function: %w", err)
	}
	fmt.Println(" OK")

	// Reporting roles connecting directly (not as the table owner) see only
	// their own row unless they are admins.
	fmt.Print(" [up] enabling role_assignments row policy...")
	stmts := []string{
		`ALTER TABLE role_assignments ENABLE ROW LEVEL SECURITY`,
		`DROP POLICY IF EXISTS role_assignments_read ON role_assignments`,
		`CREATE POLICY role_assignments_read ON role_assignments FOR SELECT
			USING (
				principal_id = current_setting('hrapi.principal_id', true)
				OR hr_is_admin(current_setting('hrapi.principal_id', true))
			)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply role_assignments row policy: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

func down_20261001000002(ctx context.Context, db *bun.DB) error {
	if !IsPostgreSQL(db) {
		return nil
	}
	stmts := []string{
		`DROP POLICY IF EXISTS role_assignments_read ON role_assignments`,
		`ALTER TABLE role_assignments DISABLE ROW LEVEL SECURITY`,
		`DROP FUNCTION IF EXISTS hr_is_admin(text)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop hr_is_admin predicate: %w", err)
		}
	}
	return nil
}
