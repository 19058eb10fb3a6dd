// Package roles is the single source of truth for which role a principal
// holds, and the only writer of role assignment rows.
//
// Reads for ordinary callers go through a Casbin row policy evaluated
// against the caller's own role. The caller's role is always resolved
// through the trusted predicate path (EffectiveRole / IsAdmin), never
// through the filtered read, so no authorization decision depends on
// itself.
package roles

import (
	"context"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
)

// SystemActor is recorded as assigned_by for grants not made by a principal.
const SystemActor = "system"

// Assignment is one row of the role table as seen by callers.
type Assignment struct {
	PrincipalID string         `json:"principal_id"`
	Role        models.RoleTag `json:"role"`
	AssignedBy  string         `json:"assigned_by"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Service reconciles role assignments. Every store call runs under timeout
// and every failure is an *apperr.Error. There are no internal retries.
type Service struct {
	repo     repository.RoleAssignmentRepository
	enforcer casbin.IEnforcer
	timeout  time.Duration
}

// NewService wires the reconciler. timeout bounds each store call.
func NewService(repo repository.RoleAssignmentRepository, enforcer casbin.IEnforcer, timeout time.Duration) *Service {
	return &Service{repo: repo, enforcer: enforcer, timeout: timeout}
}

func (s *Service) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return apperr.Call(ctx, s.timeout, op, repository.IsNotFound, fn)
}

// GetRole returns principalID's role as visible to callerID. A missing row
// yields the default role.
func (s *Service) GetRole(ctx context.Context, callerID, principalID string) (models.RoleTag, error) {
	role, err := s.LookupRole(ctx, callerID, principalID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return models.DefaultRole, nil
	}
	return role, err
}

// LookupRole is GetRole without normalization: a missing row is NotFound.
func (s *Service) LookupRole(ctx context.Context, callerID, principalID string) (models.RoleTag, error) {
	const op = "roles.GetRole"

	callerRole, err := s.EffectiveRole(ctx, callerID)
	if err != nil {
		return "", err
	}
	allowed, err := auth.Authorize(s.enforcer, callerRole, auth.ObjectRoleAssignment, auth.RoleRead, auth.SelfAttrs(callerID, principalID))
	if err != nil {
		return "", apperr.Wrap(apperr.KindRemoteUnavailable, op, err)
	}
	if !allowed {
		return "", apperr.AccessDenied(op, "caller may not read this role assignment")
	}

	var row *models.RoleAssignment
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		row, err = s.repo.Get(ctx, principalID)
		return err
	})
	if err != nil {
		return "", err
	}
	return row.Role, nil
}

// EffectiveRole is the trusted read of a principal's own role, used for
// request authorization. It bypasses the row policy.
func (s *Service) EffectiveRole(ctx context.Context, principalID string) (models.RoleTag, error) {
	var row *models.RoleAssignment
	err := s.call(ctx, "roles.EffectiveRole", func(ctx context.Context) error {
		var err error
		row, err = s.repo.Get(ctx, principalID)
		return err
	})
	switch {
	case err == nil:
		return row.Role, nil
	case apperr.KindOf(err) == apperr.KindNotFound:
		return models.DefaultRole, nil
	default:
		return "", err
	}
}

// IsAdmin evaluates the trusted server-side predicate for callerID.
func (s *Service) IsAdmin(ctx context.Context, callerID string) (bool, error) {
	var ok bool
	err := s.call(ctx, "roles.IsAdmin", func(ctx context.Context) error {
		var err error
		ok, err = s.repo.IsAdmin(ctx, callerID)
		return err
	})
	return ok, err
}

// GrantRole sets principalID's role, overwriting any previous tag.
func (s *Service) GrantRole(ctx context.Context, principalID string, role models.RoleTag, assignedBy string) error {
	const op = "roles.GrantRole"
	if err := validate(op, principalID, role); err != nil {
		return err
	}
	if assignedBy == "" {
		assignedBy = SystemActor
	}
	return s.call(ctx, op, func(ctx context.Context) error {
		return s.repo.Upsert(ctx, &models.RoleAssignment{
			PrincipalID: principalID,
			Role:        role,
			AssignedBy:  assignedBy,
		})
	})
}

// EnsureRole grants role only if principalID has no assignment yet. It
// reports whether a row was written.
func (s *Service) EnsureRole(ctx context.Context, principalID string, role models.RoleTag) (bool, error) {
	const op = "roles.EnsureRole"
	if err := validate(op, principalID, role); err != nil {
		return false, err
	}
	var created bool
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		created, err = s.repo.InsertIfAbsent(ctx, &models.RoleAssignment{
			PrincipalID: principalID,
			Role:        role,
			AssignedBy:  SystemActor,
		})
		return err
	})
	return created, err
}

// ListRoleAssignments is the full scan used by the administration view.
func (s *Service) ListRoleAssignments(ctx context.Context, callerID string) ([]Assignment, error) {
	const op = "roles.ListRoleAssignments"

	admin, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperr.AccessDenied(op, "admin role required")
	}

	var rows []models.RoleAssignment
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, Assignment{
			PrincipalID: r.PrincipalID,
			Role:        r.Role,
			AssignedBy:  r.AssignedBy,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out, nil
}

func validate(op, principalID string, role models.RoleTag) error {
	if principalID == "" {
		return apperr.ValidationFailed(op, "principal id is required")
	}
	if !role.Valid() {
		return apperr.ValidationFailed(op, "unknown role "+string(role))
	}
	return nil
}
