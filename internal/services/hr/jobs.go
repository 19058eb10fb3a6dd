package hr

import (
	"context"
	"strings"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// JobInput is the payload for creating or updating a job code. JobCode is
// ignored on update.
type JobInput struct {
	JobCode string `mapstructure:"jobcode"`
	JobDesc string `mapstructure:"jobdesc"`
}

func (s *Service) ListJobs(ctx context.Context) ([]models.Job, error) {
	const op = "hr.ListJobs"
	ctx, span, err := s.begin(ctx, op, auth.HRRead, "job")
	defer span.End()
	if err != nil {
		return nil, err
	}

	var jobs []models.Job
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		jobs, err = s.repos.Jobs.List(ctx)
		return err
	})
	return jobs, finish(span, err)
}

// CreateJob inserts a job under its caller-supplied code. A duplicate code
// is a validation failure.
func (s *Service) CreateJob(ctx context.Context, in JobInput) (*models.Job, error) {
	const op = "hr.CreateJob"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job")
	defer span.End()
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		JobCode: strings.TrimSpace(in.JobCode),
		JobDesc: strings.TrimSpace(in.JobDesc),
	}
	if job.JobCode == "" || job.JobDesc == "" {
		return nil, finish(span, apperr.ValidationFailed(op, "jobcode and jobdesc are required"))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Jobs.Create(ctx, job)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return job, nil
}

func (s *Service) UpdateJob(ctx context.Context, code string, in JobInput) (*models.Job, error) {
	const op = "hr.UpdateJob"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job")
	defer span.End()
	if err != nil {
		return nil, err
	}

	job := &models.Job{JobCode: code, JobDesc: strings.TrimSpace(in.JobDesc)}
	if job.JobDesc == "" {
		return nil, finish(span, apperr.ValidationFailed(op, "jobdesc is required"))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Jobs.Update(ctx, job)
	})
	if err != nil {
		return nil, finish(span, err)
	}
	return job, nil
}

func (s *Service) DeleteJob(ctx context.Context, code string) error {
	const op = "hr.DeleteJob"
	ctx, span, err := s.begin(ctx, op, auth.HRWrite, "job")
	defer span.End()
	if err != nil {
		return err
	}
	return finish(span, s.call(ctx, op, func(ctx context.Context) error {
		return s.repos.Jobs.Delete(ctx, code)
	}))
}
