package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// BunRoleAssignmentRepository implements RoleAssignmentRepository using Bun ORM
type BunRoleAssignmentRepository struct {
	db *bun.DB
}

// NewBunRoleAssignmentRepository creates a new Bun-based role assignment repository
func NewBunRoleAssignmentRepository(db *bun.DB) *BunRoleAssignmentRepository {
	return &BunRoleAssignmentRepository{db: db}
}

// Upsert sets the role for a principal in one statement. A second call with
// the same principal overwrites the tag (last write wins).
func (r *BunRoleAssignmentRepository) Upsert(ctx context.Context, a *models.RoleAssignment) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().
		Model(a).
		On("CONFLICT (principal_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Set("assigned_by = EXCLUDED.assigned_by").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert role assignment: %w", err)
	}
	return nil
}

// InsertIfAbsent writes the assignment only if the principal has no row.
func (r *BunRoleAssignmentRepository) InsertIfAbsent(ctx context.Context, a *models.RoleAssignment) (bool, error) {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.NewInsert().
		Model(a).
		On("CONFLICT (principal_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert role assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// Get retrieves the assignment for a principal
func (r *BunRoleAssignmentRepository) Get(ctx context.Context, principalID string) (*models.RoleAssignment, error) {
	a := new(models.RoleAssignment)
	if err := r.db.NewSelect().Model(a).Where("principal_id = ?", principalID).Scan(ctx); err != nil {
		return nil, notFound(err, "role assignment", principalID)
	}
	return a, nil
}

// List returns every assignment ordered by principal
func (r *BunRoleAssignmentRepository) List(ctx context.Context) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	if err := r.db.NewSelect().Model(&out).Order("principal_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	return out, nil
}

// IsAdmin evaluates the trusted admin predicate. On PostgreSQL this is the
// SECURITY DEFINER function hr_is_admin, which bypasses the row policy on
// role_assignments; on SQLite the same EXISTS query runs directly.
func (r *BunRoleAssignmentRepository) IsAdmin(ctx context.Context, principalID string) (bool, error) {
	var ok bool
	var err error
	if r.db.Dialect().Name() == dialect.PG {
		err = r.db.NewRaw("SELECT hr_is_admin(?)", principalID).Scan(ctx, &ok)
	} else {
		ok, err = r.db.NewSelect().
			Model((*models.RoleAssignment)(nil)).
			Where("principal_id = ?", principalID).
			Where("role = ?", models.RoleAdmin).
			Exists(ctx)
	}
	if err != nil {
		return false, fmt.Errorf("evaluate admin predicate: %w", err)
	}
	return ok, nil
}
