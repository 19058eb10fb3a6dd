package server

import (
	"context"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/services/admin"
	"github.com/terraconstructs/hrconsole/internal/services/hr"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/roles"
)

// authService is the slice of iam.Service the auth handlers use.
type authService interface {
	SignUp(ctx context.Context, email, password, name string) (*models.User, error)
	SignIn(ctx context.Context, email, password string, meta iam.ClientMeta) (*iam.SignInResult, error)
	SignOut(ctx context.Context, token string) error
	GetCurrentSession(ctx context.Context, token string) (*iam.Principal, error)
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error)
}

// roleService is the role reconciler surface exposed over HTTP.
type roleService interface {
	GetRole(ctx context.Context, callerID, principalID string) (models.RoleTag, error)
	IsAdmin(ctx context.Context, callerID string) (bool, error)
	ListRoleAssignments(ctx context.Context, callerID string) ([]roles.Assignment, error)
}

// adminService is the administration view.
type adminService interface {
	ListUsers(ctx context.Context, caller iam.Principal, filter string) (*admin.Listing, error)
	SetRole(ctx context.Context, caller iam.Principal, principalID string, role models.RoleTag) error
	Block(ctx context.Context, caller iam.Principal, principalID string) error
	CreateUser(ctx context.Context, caller iam.Principal, email, password, name string, role models.RoleTag) (*admin.Row, error)
	RedeemSetupToken(ctx context.Context, caller iam.Principal, token string) error
}

// hrService covers the HR record handlers.
type hrService interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	GetDepartment(ctx context.Context, code string) (*models.Department, error)
	CreateDepartment(ctx context.Context, in hr.DepartmentInput) (*models.Department, error)
	UpdateDepartment(ctx context.Context, code string, in hr.DepartmentInput) (*models.Department, error)
	DeleteDepartment(ctx context.Context, code string) error

	ListJobs(ctx context.Context) ([]models.Job, error)
	CreateJob(ctx context.Context, in hr.JobInput) (*models.Job, error)
	UpdateJob(ctx context.Context, code string, in hr.JobInput) (*models.Job, error)
	DeleteJob(ctx context.Context, code string) error

	ListEmployees(ctx context.Context, filter string) ([]models.Employee, error)
	GetEmployee(ctx context.Context, empNo int64) (*models.Employee, error)
	CreateEmployee(ctx context.Context, in hr.EmployeeInput) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, empNo int64, in hr.EmployeeInput) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, empNo int64) error

	ListJobHistory(ctx context.Context, empNo int64) ([]models.JobHistory, error)
	CreateJobHistory(ctx context.Context, empNo int64, in hr.JobHistoryInput) (*models.JobHistory, error)
	UpdateJobHistory(ctx context.Context, id string, in hr.JobHistoryInput) (*models.JobHistory, error)
	DeleteJobHistory(ctx context.Context, id string) error

	Dashboard(ctx context.Context) (*hr.Dashboard, error)
}

// Compile-time assertions against the concrete services.
var (
	_ authService  = (iam.Service)(nil)
	_ roleService  = (*roles.Service)(nil)
	_ adminService = (*admin.View)(nil)
	_ hrService    = (*hr.Service)(nil)
)
