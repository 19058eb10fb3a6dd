package repository

import (
	"context"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/bunx"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

// BunJobHistoryRepository implements JobHistoryRepository using Bun ORM
type BunJobHistoryRepository struct {
	db *bun.DB
}

// NewBunJobHistoryRepository creates a new Bun-based job history repository
func NewBunJobHistoryRepository(db *bun.DB) *BunJobHistoryRepository {
	return &BunJobHistoryRepository{db: db}
}

func (r *BunJobHistoryRepository) Create(ctx context.Context, entry *models.JobHistory) error {
	if entry.ID == "" {
		entry.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("create job history: %w", err)
	}
	return nil
}

func (r *BunJobHistoryRepository) Get(ctx context.Context, id string) (*models.JobHistory, error) {
	entry := new(models.JobHistory)
	if err := r.db.NewSelect().Model(entry).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err, "job history", id)
	}
	return entry, nil
}

func (r *BunJobHistoryRepository) ListByEmployee(ctx context.Context, empNo int64) ([]models.JobHistory, error) {
	var entries []models.JobHistory
	err := r.db.NewSelect().
		Model(&entries).
		Where("empno = ?", empNo).
		Order("effdate DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list job history: %w", err)
	}
	return entries, nil
}

func (r *BunJobHistoryRepository) Update(ctx context.Context, entry *models.JobHistory) error {
	res, err := r.db.NewUpdate().
		Model(entry).
		Column("jobcode", "deptcode", "effdate", "salary").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update job history: %w", err)
	}
	return requireAffected(res, "job history", entry.ID)
}

func (r *BunJobHistoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*models.JobHistory)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete job history: %w", err)
	}
	return requireAffected(res, "job history", id)
}

// CurrentSalaries returns, per employee, the salary of the entry with the
// latest effective date.
func (r *BunJobHistoryRepository) CurrentSalaries(ctx context.Context) ([]float64, error) {
	var salaries []float64
	err := r.db.NewSelect().
		Model((*models.JobHistory)(nil)).
		ColumnExpr("jh.salary").
		Where("jh.effdate = (SELECT MAX(x.effdate) FROM job_history AS x WHERE x.empno = jh.empno)").
		Scan(ctx, &salaries)
	if err != nil {
		return nil, fmt.Errorf("current salaries: %w", err)
	}
	return salaries, nil
}
