package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

// BunEmployeeRepository implements EmployeeRepository using Bun ORM
type BunEmployeeRepository struct {
	db *bun.DB
}

// NewBunEmployeeRepository creates a new Bun-based employee repository
func NewBunEmployeeRepository(db *bun.DB) *BunEmployeeRepository {
	return &BunEmployeeRepository{db: db}
}

// Create inserts an employee. A zero EmpNo is replaced by max(empno)+1 read
// in the same transaction; concurrent creators may collide on the primary
// key, which surfaces as a unique violation for the caller to retry.
func (r *BunEmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if emp.EmpNo == 0 {
			var max sql.NullInt64
			err := tx.NewSelect().
				Model((*models.Employee)(nil)).
				ColumnExpr("MAX(empno)").
				Scan(ctx, &max)
			if err != nil {
				return fmt.Errorf("allocate empno: %w", err)
			}
			emp.EmpNo = max.Int64 + 1
		}
		if _, err := tx.NewInsert().Model(emp).Exec(ctx); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		return nil
	})
}

func (r *BunEmployeeRepository) Get(ctx context.Context, empNo int64) (*models.Employee, error) {
	emp := new(models.Employee)
	if err := r.db.NewSelect().Model(emp).Where("empno = ?", empNo).Scan(ctx); err != nil {
		return nil, notFound(err, "employee", empNo)
	}
	return emp, nil
}

func (r *BunEmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	var emps []models.Employee
	if err := r.db.NewSelect().Model(&emps).Order("empno ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return emps, nil
}

func (r *BunEmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	res, err := r.db.NewUpdate().
		Model(emp).
		Column("firstname", "lastname", "gender", "birthdate", "hiredate", "sepdate").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return requireAffected(res, "employee", emp.EmpNo)
}

// Delete removes the employee's job history first so the foreign keys hold.
func (r *BunEmployeeRepository) Delete(ctx context.Context, empNo int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.JobHistory)(nil)).
			Where("empno = ?", empNo).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete employee job history: %w", err)
		}
		res, err := tx.NewDelete().
			Model((*models.Employee)(nil)).
			Where("empno = ?", empNo).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		return requireAffected(res, "employee", empNo)
	})
}

func (r *BunEmployeeRepository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*models.Employee)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}
