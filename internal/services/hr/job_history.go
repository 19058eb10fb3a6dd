package hr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// JobHistoryInput is the payload for creating or updating a job history entry.
type JobHistoryInput struct {
	JobCode  string    `mapstructure:"jobcode"`
	DeptCode string    `mapstructure:"deptcode"`
	EffDate  time.Time `mapstructure:"effdate"`
	Salary   float64   `mapstructure:"salary"`
}

// ListJobHistory returns empNo's entries, newest effective date first.
func (s *Service) ListJobHistory(ctx context.Context, empNo int64) ([]models.JobHistory, error) {
	const op = "hr.ListJobHistory"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "job_history")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var entries []models.JobHistory
	err = s.call(ctx, op, func(ctx context.Context) error {
		if _, err := s.repos.Employees.Get(ctx, empNo); err != nil {
			return err
		}
		var err error
		entries, err = s.repos.JobHistory.ListByEmployee(ctx, empNo)
		return err
	})
	return entries, finish(span, err)
}

// CreateJobHistory appends an entry to empNo's timeline after checking that
// the employee, job and department exist.
func (s *Service) CreateJobHistory(ctx context.Context, empNo int64, in JobHistoryInput) (*models.JobHistory, error) {
	const op = "hr.CreateJobHistory"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job_history")
	defer span.End()
	if err != nil {
		return nil, err
	}

	if err := s.checkEmployee(ctx, op, empNo); err != nil {
		return nil, finish(span, err)
	}
	entry := &models.JobHistory{EmpNo: empNo}
	if err := s.applyJobHistory(ctx, op, entry, in); err != nil {
		return nil, finish(span, err)
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.JobHistory.Create(ctx, entry)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return entry, nil
}

// UpdateJobHistory rewrites entry id. The owning employee cannot change.
func (s *Service) UpdateJobHistory(ctx context.Context, id string, in JobHistoryInput) (*models.JobHistory, error) {
	const op = "hr.UpdateJobHistory"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job_history")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var entry *models.JobHistory
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		entry, err = s.repos.JobHistory.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, finish(span, err)
	}
	if err := s.applyJobHistory(ctx, op, entry, in); err != nil {
		return nil, finish(span, err)
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.JobHistory.Update(ctx, entry)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return entry, nil
}

func (s *Service) DeleteJobHistory(ctx context.Context, id string) error {
	const op = "hr.DeleteJobHistory"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job_history")
	defer span.End()
	if err != nil {
		return err
	}
	return finish(span, s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.JobHistory.Delete(ctx, id)
	}))
}

func (s *Service) checkEmployee(ctx context.Context, op string, empNo int64) error {
	return s.call(ctx, op, func(ctx context.Context) error {
		_, err := s.repos.Employees.Get(ctx, empNo)
		return err
	})
}

// applyJobHistory validates in and copies it onto entry. References to an
// unknown job or department are validation failures, not NotFound.
func (s *Service) applyJobHistory(ctx context.Context, op string, entry *models.JobHistory, in JobHistoryInput) error {
	jobCode := strings.TrimSpace(in.JobCode)
	deptCode := strings.TrimSpace(in.DeptCode)
	switch {
	case jobCode == "" || deptCode == "":
		return apperr.ValidationFailed(op, "jobcode and deptcode are required")
	case in.EffDate.IsZero():
		return apperr.ValidationFailed(op, "effdate is required")
	case in.Salary < 0:
		return apperr.ValidationFailed(op, "salary must not be negative")
	}

	err := s.call(ctx, op, func(ctx context.Context) error {
		_, err := s.repos.Jobs.Get(ctx, jobCode)
		return err
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.ValidationFailed(op, fmt.Sprintf("unknown jobcode %q", jobCode))
	} else if err != nil {
		return err
	}

	err = s.call(ctx, op, func(ctx context.Context) error {
		_, err := s.repos.Departments.Get(ctx, deptCode)
		return err
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.ValidationFailed(op, fmt.Sprintf("unknown deptcode %q", deptCode))
	} else if err != nil {
		return err
	}

	entry.JobCode = jobCode
	entry.DeptCode = deptCode
	entry.EffDate = in.EffDate
	entry.Salary = in.Salary
	return nil
}
