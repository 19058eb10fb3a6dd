package repository

import (
	"context"
	"time"

	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// UserRepository exposes persistence operations for identity-store principals.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns one page of principals ordered by creation time.
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// SessionRepository exposes persistence operations for console sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// GetByTokenHash returns the session even when expired or revoked;
	// validity is the caller's decision.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	UpdateLastUsed(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RoleAssignmentRepository is the only writer of role_assignments.
type RoleAssignmentRepository interface {
	// Upsert unconditionally sets the role for a principal.
	Upsert(ctx context.Context, assignment *models.RoleAssignment) error
	// InsertIfAbsent writes the row only when the principal has none.
	// Reports whether a row was written.
	InsertIfAbsent(ctx context.Context, assignment *models.RoleAssignment) (bool, error)
	Get(ctx context.Context, principalID string) (*models.RoleAssignment, error)
	List(ctx context.Context) ([]models.RoleAssignment, error)
	// IsAdmin is the trusted predicate. It never applies row filtering.
	IsAdmin(ctx context.Context, principalID string) (bool, error)
}

// SetupTokenRepository tracks redeemed one-time setup tokens.
type SetupTokenRepository interface {
	// Redeem records the token and reports false if it was already used.
	Redeem(ctx context.Context, token *models.UsedSetupToken) (bool, error)
	// Release removes a redemption, making the jti usable again.
	Release(ctx context.Context, jti string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DepartmentRepository exposes persistence operations for departments.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error
	Get(ctx context.Context, code string) (*models.Department, error)
	// ListWithEmployeeCounts counts distinct employees with job history in each department.
	ListWithEmployeeCounts(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, dept *models.Department) error
	Delete(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
}

// JobRepository exposes persistence operations for job codes.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, code string) (*models.Job, error)
	List(ctx context.Context) ([]models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
}

// EmployeeRepository exposes persistence operations for employees.
type EmployeeRepository interface {
	// Create allocates EmpNo as max(empno)+1 when it is zero.
	Create(ctx context.Context, emp *models.Employee) error
	Get(ctx context.Context, empNo int64) (*models.Employee, error)
	List(ctx context.Context) ([]models.Employee, error)
	Update(ctx context.Context, emp *models.Employee) error
	// Delete removes the employee's job history and the employee in one transaction.
	Delete(ctx context.Context, empNo int64) error
	Count(ctx context.Context) (int, error)
}

// JobHistoryRepository exposes persistence operations for job history entries.
type JobHistoryRepository interface {
	Create(ctx context.Context, entry *models.JobHistory) error
	Get(ctx context.Context, id string) (*models.JobHistory, error)
	// ListByEmployee returns entries newest first.
	ListByEmployee(ctx context.Context, empNo int64) ([]models.JobHistory, error)
	Update(ctx context.Context, entry *models.JobHistory) error
	Delete(ctx context.Context, id string) error
	// CurrentSalaries returns the latest salary of every employee with history.
	CurrentSalaries(ctx context.Context) ([]float64, error)
}
