package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000003, down_20261001000003)
}

// up_20261001000003 creates the HR record tables
func up_20261001000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating departments table...")
	if _, err := db.NewCreateTable().
		Model((*models.Department)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create departments table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating jobs table...")
	if _, err := db.NewCreateTable().
		Model((*models.Job)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating employees table...")
	if _, err := db.NewCreateTable().
		Model((*models.Employee)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create employees table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_employees_lastname ON employees(lastname)`); err != nil {
		return fmt.Errorf("failed to create employees lastname index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating job_history table...")
	if _, err := db.NewCreateTable().
		Model((*models.JobHistory)(nil)).
		IfNotExists().
		ForeignKey(`("empno") REFERENCES "employees" ("empno")`).
		ForeignKey(`("jobcode") REFERENCES "jobs" ("jobcode")`).
		ForeignKey(`("deptcode") REFERENCES "departments" ("deptcode")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create job_history table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_job_history_empno ON job_history(empno)`); err != nil {
		return fmt.Errorf("failed to create job_history empno index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_job_history_deptcode ON job_history(deptcode)`); err != nil {
		return fmt.Errorf("failed to create job_history deptcode index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

func down_20261001000003(ctx context.Context, db *bun.DB) error {
	for _, table := range []string{"job_history", "employees", "jobs", "departments"} {
		fmt.Printf(" [down] dropping %s table...", table)
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
