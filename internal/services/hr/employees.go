package hr

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// empNoAttempts bounds retries when two creators allocate the same empno.
const empNoAttempts = 3

// EmployeeInput is the payload for creating or updating an employee. A zero
// EmpNo on create asks the store to allocate the next number.
type EmployeeInput struct {
	EmpNo     int64      `mapstructure:"empno"`
	FirstName string     `mapstructure:"firstname"`
	LastName  string     `mapstructure:"lastname"`
	Gender    string     `mapstructure:"gender"`
	BirthDate *time.Time `mapstructure:"birthdate"`
	HireDate  time.Time  `mapstructure:"hiredate"`
	SepDate   *time.Time `mapstructure:"sepdate"`
}

func (in EmployeeInput) model(op string, empNo int64) (*models.Employee, error) {
	emp := &models.Employee{
		EmpNo:     empNo,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Gender:    strings.ToUpper(strings.TrimSpace(in.Gender)),
		BirthDate: in.BirthDate,
		HireDate:  in.HireDate,
		SepDate:   in.SepDate,
	}
	switch {
	case emp.FirstName == "" || emp.LastName == "":
		return nil, apperr.ValidationFailed(op, "firstname and lastname are required")
	case emp.Gender != "M" && emp.Gender != "F":
		return nil, apperr.ValidationFailed(op, "gender must be M or F")
	case emp.HireDate.IsZero():
		return nil, apperr.ValidationFailed(op, "hiredate is required")
	case emp.SepDate != nil && emp.SepDate.Before(emp.HireDate):
		return nil, apperr.ValidationFailed(op, "sepdate precedes hiredate")
	}
	return emp, nil
}

// employeeAttrs exposes the fields an employee filter expression can use.
func employeeAttrs(now time.Time) func(models.Employee) map[string]any {
	return func(e models.Employee) map[string]any {
		return map[string]any{
			"empno":     e.EmpNo,
			"firstname": e.FirstName,
			"lastname":  e.LastName,
			"gender":    e.Gender,
			"hire_year": e.HireDate.Year(),
			"active":    e.Active(now),
		}
	}
}

// ListEmployees returns employees ordered by empno. filter is an optional
// go-bexpr expression over empno, firstname, lastname, gender, hire_year and
// active, e.g. `active == true and gender == "F"`.
func (s *Service) ListEmployees(ctx context.Context, filter string) ([]models.Employee, error) {
	const op = "hr.ListEmployees"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "employee")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var emps []models.Employee
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		emps, err = s.repos.Employees.List(ctx)
		return err
	})
	if err != nil {
		return nil, finish(span, err)
	}

	filtered, err := auth.FilterRows(filter, emps, employeeAttrs(s.now()))
	if err != nil {
		return nil, finish(span, apperr.Wrap(apperr.KindValidationFailed, op, err))
	}
	return filtered, nil
}

func (s *Service) GetEmployee(ctx context.Context, empNo int64) (*models.Employee, error) {
	const op = "hr.GetEmployee"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "employee")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var emp *models.Employee
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		emp, err = s.repos.Employees.Get(ctx, empNo)
		return err
	})
	return emp, finish(span, err)
}

// CreateEmployee inserts an employee. When the caller leaves EmpNo zero the
// number is allocated as max+1 and reallocated if a concurrent insert took it.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	const op = "hr.CreateEmployee"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "employee")
	defer span.End()
	if err != nil {
		return nil, err
	}

	attempts := 1
	if in.EmpNo == 0 {
		attempts = empNoAttempts
	}
	for i := 0; i < attempts; i++ {
		emp, verr := in.model(op, in.EmpNo)
		if verr != nil {
			return nil, finish(span, verr)
		}
		err = s.call(ctx, op, func(ctx context.Context) error {
			return s.repos.Employees.Create(ctx, emp)
		})
		if err == nil {
			span.SetAttributes(attribute.String(telemetry.AttrHRKey, strconv.FormatInt(emp.EmpNo, 10)))
			return emp, nil
		}
		if apperr.KindOf(err) != apperr.KindValidationFailed {
			break
		}
	}
	return nil, finish(span, err)
}

func (s *Service) UpdateEmployee(ctx context.Context, empNo int64, in EmployeeInput) (*models.Employee, error) {
	const op = "hr.UpdateEmployee"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "employee")
	defer span.End()
	if err != nil {
		return nil, err
	}

	emp, err := in.model(op, empNo)
	if err != nil {
		return nil, finish(span, err)
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Employees.Update(ctx, emp)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return emp, nil
}

// DeleteEmployee removes the employee together with their job history.
func (s *Service) DeleteEmployee(ctx context.Context, empNo int64) error {
	const op = "hr.DeleteEmployee"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "employee")
	defer span.End()
	if err != nil {
		return err
	}
	return finish(span, s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Employees.Delete(ctx, empNo)
	}))
}
