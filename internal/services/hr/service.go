// Package hr manages the console's HR records: departments, job codes,
// employees and their job history, plus the dashboard aggregates.
//
// Every operation authorizes the caller found on the context against the
// Casbin "hr" object before touching the store.
package hr

import (
	"context"
	"time"

	"github.com/casbin/casbin/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

const tracerName = "hrapi/services/hr"

// Repositories groups the stores the HR service reads and writes.
type Repositories struct {
	Departments repository.DepartmentRepository
	Jobs        repository.JobRepository
	Employees   repository.EmployeeRepository
	JobHistory  repository.JobHistoryRepository
}

// Service implements the HR record operations.
type Service struct {
	repos    Repositories
	enforcer casbin.IEnforcer
	timeout  time.Duration
	now      func() time.Time
}

// NewService wires the HR service. timeout bounds each store call.
func NewService(repos Repositories, enforcer casbin.IEnforcer, timeout time.Duration) *Service {
	return &Service{repos: repos, enforcer: enforcer, timeout: timeout, now: time.Now}
}

func (s *Service) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return apperr.Call(ctx, s.timeout, op, repository.IsNotFound, fn)
}

// begin authorizes the caller for act and opens the operation span. The
// returned span must be ended by the caller even when err is non-nil.
func (s *Service) begin(ctx context.Context, op, act, entity string) (context.Context, trace.Span, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrHREntity, entity),
		attribute.String(telemetry.AttrPolicyAction, act),
	)

	principal, ok := auth.GetUserFromContext(ctx)
	if !ok {
		err := apperr.Unauthenticated(op, "no authenticated principal")
		telemetry.RecordError(span, err)
		return ctx, span, err
	}
	allowed, err := auth.Authorize(s.enforcer, principal.Role, auth.ObjectHR, act, nil)
	if err != nil {
		err = apperr.Wrap(apperr.KindRemoteUnavailable, op, err)
		telemetry.RecordError(span, err)
		return ctx, span, err
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrPolicyAllowed, allowed))
	if !allowed {
		err := apperr.AccessDenied(op, "role "+string(principal.Role)+" may not perform "+act)
		telemetry.RecordError(span, err)
		return ctx, span, err
	}
	return ctx, span, nil
}

// finish records err on span and passes it through.
func finish(span trace.Span, err error) error {
	telemetry.RecordError(span, err)
	return err
}
