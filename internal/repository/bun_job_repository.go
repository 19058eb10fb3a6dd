package repository

import (
	"context"
	"fmt"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

// BunJobRepository implements JobRepository using Bun ORM
type BunJobRepository struct {
	db *bun.DB
}

// NewBunJobRepository creates a new Bun-based job repository
func NewBunJobRepository(db *bun.DB) *BunJobRepository {
	return &BunJobRepository{db: db}
}

func (r *BunJobRepository) Create(ctx context.Context, job *models.Job) error {
	if _, err := r.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *BunJobRepository) Get(ctx context.Context, code string) (*models.Job, error) {
	job := new(models.Job)
	if err := r.db.NewSelect().Model(job).Where("jobcode = ?", code).Scan(ctx); err != nil {
		return nil, notFound(err, "job", code)
	}
	return job, nil
}

func (r *BunJobRepository) List(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.NewSelect().Model(&jobs).Order("jobcode ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (r *BunJobRepository) Update(ctx context.Context, job *models.Job) error {
	res, err := r.db.NewUpdate().Model(job).Column("jobdesc").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireAffected(res, "job", job.JobCode)
}

func (r *BunJobRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.NewDelete().Model((*models.Job)(nil)).Where("jobcode = ?", code).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return requireAffected(res, "job", code)
}

func (r *BunJobRepository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*models.Job)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}
