package hr

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// Dashboard summarises the HR records for the console landing page.
type Dashboard struct {
	Employees   int `json:"employees"`
	Departments int `json:"departments"`
	Jobs        int `json:"jobs"`

	// Salary statistics over each employee's most recent job history entry.
	// Zero when no employee has history.
	SalaryMean   float64 `json:"salary_mean"`
	SalaryStdDev float64 `json:"salary_stddev"`
	SalaryCount  int     `json:"salary_count"`
}

// Dashboard gathers the counts and salary statistics concurrently. The
// first failing query cancels the others.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	const op = "hr.Dashboard"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "dashboard")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var (
		out      Dashboard
		salaries []float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.call(gctx, op, func(ctx context.Context) error {
			var err error
			out.Employees, err = s.repos.Employees.Count(ctx)
			return err
		})
	})
	g.Go(func() error {
		return s.call(gctx, op, func(ctx context.Context) error {
			var err error
			out.Departments, err = s.repos.Departments.Count(ctx)
			return err
		})
	})
	g.Go(func() error {
		return s.call(gctx, op, func(ctx context.Context) error {
			var err error
			out.Jobs, err = s.repos.Jobs.Count(ctx)
			return err
		})
	})
	g.Go(func() error {
		return s.call(gctx, op, func(ctx context.Context) error {
			var err error
			salaries, err = s.repos.JobHistory.CurrentSalaries(ctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, finish(span, err)
	}

	out.SalaryCount = len(salaries)
	switch len(salaries) {
	case 0:
	case 1:
		out.SalaryMean = salaries[0]
	default:
		out.SalaryMean, out.SalaryStdDev = stat.MeanStdDev(salaries, nil)
	}
	telemetry.AddEvent(span, "dashboard.computed", attribute.Int("salary_count", out.SalaryCount))
	return &out, nil
}
