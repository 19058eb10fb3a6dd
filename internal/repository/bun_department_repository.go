package repository

import (
	"context"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

// BunDepartmentRepository implements DepartmentRepository using Bun ORM
type BunDepartmentRepository struct {
	db *bun.DB
}

// NewBunDepartmentRepository creates a new Bun-based department repository
func NewBunDepartmentRepository(db *bun.DB) *BunDepartmentRepository {
	return &BunDepartmentRepository{db: db}
}

func (r *BunDepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if _, err := r.db.NewInsert().Model(dept).Exec(ctx); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (r *BunDepartmentRepository) Get(ctx context.Context, code string) (*models.Department, error) {
	dept := new(models.Department)
	if err := r.db.NewSelect().Model(dept).Where("deptcode = ?", code).Scan(ctx); err != nil {
		return nil, notFound(err, "department", code)
	}
	return dept, nil
}

func (r *BunDepartmentRepository) ListWithEmployeeCounts(ctx context.Context) ([]models.Department, error) {
	var depts []models.Department
	err := r.db.NewSelect().
		Model(&depts).
		ColumnExpr("d.*").
		ColumnExpr("(SELECT COUNT(DISTINCT jh.empno) FROM job_history AS jh WHERE jh.deptcode = d.deptcode) AS employee_count").
		Order("d.deptcode ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}

func (r *BunDepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	res, err := r.db.NewUpdate().
		Model(dept).
		Column("deptname", "location").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return requireAffected(res, "department", dept.DeptCode)
}

func (r *BunDepartmentRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.NewDelete().
		Model((*models.Department)(nil)).
		Where("deptcode = ?", code).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return requireAffected(res, "department", code)
}

func (r *BunDepartmentRepository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*models.Department)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return n, nil
}
