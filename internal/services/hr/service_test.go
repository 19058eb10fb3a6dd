package hr

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	return NewService(Repositories{
		Departments: repository.NewBunDepartmentRepository(db),
		Jobs:        repository.NewBunJobRepository(db),
		Employees:   repository.NewBunEmployeeRepository(db),
		JobHistory:  repository.NewBunJobHistoryRepository(db),
	}, enforcer, 2*time.Second)
}

func as(role models.RoleTag) context.Context {
	return auth.SetUserContext(context.Background(), auth.AuthenticatedPrincipal{
		PrincipalID: "p-" + string(role),
		Email:       string(role) + "@example.com",
		Role:        role,
	})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func employee(first, gender string, hired time.Time) EmployeeInput {
	return EmployeeInput{FirstName: first, LastName: "Tester", Gender: gender, HireDate: hired}
}

// seed creates one job, one department and returns the department code.
func seed(t *testing.T, svc *Service) string {
	t.Helper()
	ctx := as(models.RoleAdmin)
	_, err := svc.CreateJob(ctx, JobInput{JobCode: "ENG", JobDesc: "Engineer"})
	require.NoError(t, err)
	dept, err := svc.CreateDepartment(ctx, DepartmentInput{DeptName: "Research", Location: "Oslo"})
	require.NoError(t, err)
	return dept.DeptCode
}

func TestCreateDepartment_RetriesCodeCollision(t *testing.T) {
	codes := []string{"D0001", "D0001", "D0002"}
	orig := newDeptCode
	newDeptCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}
	t.Cleanup(func() { newDeptCode = orig })

	svc := newTestService(t)
	ctx := as(models.RoleAdmin)

	first, err := svc.CreateDepartment(ctx, DepartmentInput{DeptName: "Sales"})
	require.NoError(t, err)
	second, err := svc.CreateDepartment(ctx, DepartmentInput{DeptName: "Support"})
	require.NoError(t, err)

	assert.Equal(t, "D0001", first.DeptCode)
	assert.Equal(t, "D0002", second.DeptCode)
	assert.Empty(t, codes)
}

func TestDepartmentCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, `^D\d{4}$`, newDeptCode())
	}
}

func TestListDepartments_CountsDistinctEmployees(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	deptCode := seed(t, svc)
	other, err := svc.CreateDepartment(ctx, DepartmentInput{DeptName: "Empty"})
	require.NoError(t, err)

	ada, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)
	bob, err := svc.CreateEmployee(ctx, employee("Bob", "M", date(2021, 1, 1)))
	require.NoError(t, err)

	for _, in := range []struct {
		emp int64
		eff time.Time
	}{{ada.EmpNo, date(2020, 1, 1)}, {ada.EmpNo, date(2022, 1, 1)}, {bob.EmpNo, date(2021, 1, 1)}} {
		_, err := svc.CreateJobHistory(ctx, in.emp, JobHistoryInput{JobCode: "ENG", DeptCode: deptCode, EffDate: in.eff, Salary: 100})
		require.NoError(t, err)
	}

	depts, err := svc.ListDepartments(as(models.RoleUser))
	require.NoError(t, err)
	counts := map[string]int{}
	for _, d := range depts {
		counts[d.DeptCode] = d.EmployeeCount
	}
	assert.Equal(t, 2, counts[deptCode])
	assert.Equal(t, 0, counts[other.DeptCode])
}

func TestDepartment_UpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	code := seed(t, svc)

	updated, err := svc.UpdateDepartment(ctx, code, DepartmentInput{DeptName: "R&D", Location: "Bergen"})
	require.NoError(t, err)
	assert.Equal(t, "R&D", updated.DeptName)

	got, err := svc.GetDepartment(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Bergen", got.Location)

	require.NoError(t, svc.DeleteDepartment(ctx, code))
	_, err = svc.GetDepartment(ctx, code)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.DeleteDepartment(ctx, code)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteDepartment_ReferencedByHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	code := seed(t, svc)

	emp, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)
	_, err = svc.CreateJobHistory(ctx, emp.EmpNo, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: date(2020, 1, 1), Salary: 1})
	require.NoError(t, err)

	err = svc.DeleteDepartment(ctx, code)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestJobs_CRUD(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)

	_, err := svc.CreateJob(ctx, JobInput{JobCode: "OPS", JobDesc: "Operator"})
	require.NoError(t, err)

	_, err = svc.CreateJob(ctx, JobInput{JobCode: "OPS", JobDesc: "Again"})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	job, err := svc.UpdateJob(ctx, "OPS", JobInput{JobDesc: "Site operator"})
	require.NoError(t, err)
	assert.Equal(t, "Site operator", job.JobDesc)

	_, err = svc.UpdateJob(ctx, "NOPE", JobInput{JobDesc: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	jobs, err := svc.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, svc.DeleteJob(ctx, "OPS"))
	jobs, err = svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCreateEmployee_AllocatesNextNumber(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)

	a, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.EmpNo)

	explicit := employee("Bob", "m", date(2020, 1, 1))
	explicit.EmpNo = 10
	b, err := svc.CreateEmployee(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.EmpNo)
	assert.Equal(t, "M", b.Gender)

	c, err := svc.CreateEmployee(ctx, employee("Cy", "M", date(2020, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.EmpNo)

	_, err = svc.CreateEmployee(ctx, explicit)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestCreateEmployee_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)

	sep := date(2019, 1, 1)
	tests := []struct {
		name string
		in   EmployeeInput
	}{
		{"missing name", EmployeeInput{Gender: "F", HireDate: date(2020, 1, 1)}},
		{"bad gender", employee("Ada", "X", date(2020, 1, 1))},
		{"missing hiredate", employee("Ada", "F", time.Time{})},
		{"separated before hire", EmployeeInput{FirstName: "A", LastName: "B", Gender: "F", HireDate: date(2020, 1, 1), SepDate: &sep}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEmployee(ctx, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidationFailed)
		})
	}
}

func TestListEmployees_Filter(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	sep := date(2021, 6, 1)

	_, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2019, 1, 1)))
	require.NoError(t, err)
	_, err = svc.CreateEmployee(ctx, employee("Bob", "M", date(2020, 1, 1)))
	require.NoError(t, err)
	gone := employee("Cleo", "F", date(2020, 1, 1))
	gone.SepDate = &sep
	_, err = svc.CreateEmployee(ctx, gone)
	require.NoError(t, err)

	all, err := svc.ListEmployees(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	women, err := svc.ListEmployees(ctx, `gender == "F" and active == true`)
	require.NoError(t, err)
	require.Len(t, women, 1)
	assert.Equal(t, "Ada", women[0].FirstName)

	hired, err := svc.ListEmployees(ctx, `hire_year == 2020`)
	require.NoError(t, err)
	assert.Len(t, hired, 2)

	_, err = svc.ListEmployees(ctx, `gender ==`)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestDeleteEmployee_RemovesJobHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	code := seed(t, svc)

	emp, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)
	entry, err := svc.CreateJobHistory(ctx, emp.EmpNo, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: date(2020, 1, 1), Salary: 10})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmployee(ctx, emp.EmpNo))

	_, err = svc.GetEmployee(ctx, emp.EmpNo)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	err = svc.DeleteJobHistory(ctx, entry.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJobHistory_OrderingAndReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	code := seed(t, svc)

	emp, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)

	for _, eff := range []time.Time{date(2020, 1, 1), date(2023, 1, 1), date(2021, 1, 1)} {
		_, err := svc.CreateJobHistory(ctx, emp.EmpNo, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: eff, Salary: 50})
		require.NoError(t, err)
	}

	entries, err := svc.ListJobHistory(as(models.RoleUser), emp.EmpNo)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 2023, entries[0].EffDate.Year())
	assert.Equal(t, 2021, entries[1].EffDate.Year())
	assert.Equal(t, 2020, entries[2].EffDate.Year())

	_, err = svc.CreateJobHistory(ctx, emp.EmpNo, JobHistoryInput{JobCode: "NOPE", DeptCode: code, EffDate: date(2024, 1, 1)})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = svc.CreateJobHistory(ctx, emp.EmpNo, JobHistoryInput{JobCode: "ENG", DeptCode: "D9999x", EffDate: date(2024, 1, 1)})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = svc.CreateJobHistory(ctx, 999, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: date(2024, 1, 1)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.ListJobHistory(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := svc.UpdateJobHistory(ctx, entries[0].ID, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: date(2023, 1, 1), Salary: 75})
	require.NoError(t, err)
	assert.Equal(t, 75.0, updated.Salary)
	assert.Equal(t, emp.EmpNo, updated.EmpNo)
}

func TestDashboard(t *testing.T) {
	svc := newTestService(t)
	ctx := as(models.RoleAdmin)
	code := seed(t, svc)

	empty, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Employees)
	assert.Equal(t, 1, empty.Departments)
	assert.Equal(t, 1, empty.Jobs)
	assert.Zero(t, empty.SalaryMean)

	ada, err := svc.CreateEmployee(ctx, employee("Ada", "F", date(2020, 1, 1)))
	require.NoError(t, err)
	bob, err := svc.CreateEmployee(ctx, employee("Bob", "M", date(2020, 1, 1)))
	require.NoError(t, err)
	history := []struct {
		emp    int64
		eff    time.Time
		salary float64
	}{
		{ada.EmpNo, date(2020, 1, 1), 100},
		{ada.EmpNo, date(2022, 1, 1), 200},
		{bob.EmpNo, date(2021, 1, 1), 300},
	}
	for _, h := range history {
		_, err := svc.CreateJobHistory(ctx, h.emp, JobHistoryInput{JobCode: "ENG", DeptCode: code, EffDate: h.eff, Salary: h.salary})
		require.NoError(t, err)
	}

	d, err := svc.Dashboard(as(models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Employees)
	assert.Equal(t, 2, d.SalaryCount)
	assert.InDelta(t, 250.0, d.SalaryMean, 1e-9)
	assert.InDelta(t, math.Sqrt(5000), d.SalaryStdDev, 1e-9)
}

func TestAuthorization(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListJobs(as(models.RoleUser))
	assert.NoError(t, err)

	_, err = svc.CreateJob(as(models.RoleUser), JobInput{JobCode: "X", JobDesc: "x"})
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = svc.ListJobs(as(models.RoleBlocked))
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
