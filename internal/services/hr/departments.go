package hr

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// deptCodeAttempts bounds retries when a generated code is already taken.
const deptCodeAttempts = 5

// DepartmentInput is the payload for creating or updating a department.
type DepartmentInput struct {
	DeptName string `mapstructure:"deptname"`
	Location string `mapstructure:"location"`
}

// newDeptCode returns "D" followed by four random digits.
var newDeptCode = func() string {
	return fmt.Sprintf("D%04d", rand.IntN(10000))
}

// ListDepartments returns every department with its distinct employee count.
func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const op = "hr.ListDepartments"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "department")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var depts []models.Department
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		depts, err = s.repos.Departments.ListWithEmployeeCounts(ctx)
		return err
	})
	return depts, finish(span, err)
}

// GetDepartment returns one department.
func (s *Service) GetDepartment(ctx context.Context, code string) (*models.Department, error) {
	const op = "hr.GetDepartment"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "department")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var dept *models.Department
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		dept, err = s.repos.Departments.Get(ctx, code)
		return err
	})
	return dept, finish(span, err)
}

// CreateDepartment inserts a department under a freshly generated code,
// drawing a new code whenever the previous one collides.
func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*models.Department, error) {
	const op = "hr.CreateDepartment"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "department")
	defer span.End()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.DeptName)
	if name == "" {
		return nil, finish(span, apperr.ValidationFailed(op, "deptname is required"))
	}

	for attempt := 1; attempt <= deptCodeAttempts; attempt++ {
		dept := &models.Department{
			DeptCode: newDeptCode(),
			DeptName: name,
			Location: strings.TrimSpace(in.Location),
		}
		err = s.call(ctx, op, func(ctx context.Context) error {
			return s.repos.Departments.Create(ctx, dept)
		})
		if err == nil {
			span.SetAttributes(attribute.String(telemetry.AttrHRKey, dept.DeptCode))
			return dept, nil
		}
		if apperr.KindOf(err) != apperr.KindValidationFailed {
			return nil, finish(span, err)
		}
		telemetry.AddEvent(span, "department.code_collision",
			attribute.String(telemetry.AttrHRKey, dept.DeptCode),
			attribute.Int("attempt", attempt),
		)
	}
	return nil, finish(span, apperr.Wrap(apperr.KindRemoteUnavailable, op,
		fmt.Errorf("no free department code after %d attempts: %w", deptCodeAttempts, err)))
}

// UpdateDepartment replaces the name and location of department code.
func (s *Service) UpdateDepartment(ctx context.Context, code string, in DepartmentInput) (*models.Department, error) {
	const op = "hr.UpdateDepartment"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "department")
	defer span.End()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrHRKey, code))

	dept := &models.Department{
		DeptCode: code,
		DeptName: strings.TrimSpace(in.DeptName),
		Location: strings.TrimSpace(in.Location),
	}
	if dept.DeptName == "" {
		return nil, finish(span, apperr.ValidationFailed(op, "deptname is required"))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Departments.Update(ctx, dept)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return dept, nil
}

// DeleteDepartment removes a department. Departments still referenced by job
// history are rejected by the store's foreign key.
func (s *Service) DeleteDepartment(ctx context.Context, code string) error {
	const op = "hr.DeleteDepartment"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "department")
	defer span.End()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String(telemetry.AttrHRKey, code))

	return finish(span, s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Departments.Delete(ctx, code)
	}))
}
