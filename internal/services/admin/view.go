// Package admin produces the user-management listing and performs manual
// role changes on behalf of an administrator.
package admin

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/roles"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

const tracerName = "hrapi/services/admin"

// Directory is the identity store surface the view needs.
type Directory interface {
	ListAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, email, password, name string) (*models.User, error)
}

// RoleStore is the role reconciler surface the view needs.
type RoleStore interface {
	IsAdmin(ctx context.Context, callerID string) (bool, error)
	ListRoleAssignments(ctx context.Context, callerID string) ([]roles.Assignment, error)
	EnsureRole(ctx context.Context, principalID string, role models.RoleTag) (bool, error)
	GrantRole(ctx context.Context, principalID string, role models.RoleTag, assignedBy string) error
}

// SetupTokenRedeemer consumes one-time admin setup tokens. Release undoes a
// redemption whose grant failed.
type SetupTokenRedeemer interface {
	Redeem(ctx context.Context, token, callerID, callerEmail string) (*models.UsedSetupToken, error)
	Release(ctx context.Context, jti string) error
}

// Row is one principal with its effective role.
type Row struct {
	PrincipalID string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name,omitempty"`
	Role        models.RoleTag `json:"role"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	LastLoginAt *time.Time     `json:"last_sign_in_at,omitempty"`
	// Self marks the caller's own row; the console disables editing it.
	Self bool `json:"self"`
}

// Listing is the result of ListUsers. When Degraded is set the directory
// could not be enumerated and Rows holds only the caller; Cause says why.
type Listing struct {
	Rows     []Row  `json:"users"`
	Degraded bool   `json:"degraded"`
	Cause    string `json:"cause,omitempty"`
}

// View is the administration view.
type View struct {
	dir    Directory
	roles  RoleStore
	tokens SetupTokenRedeemer
}

// NewView wires the view. tokens may be nil when setup tokens are not offered.
func NewView(dir Directory, roles RoleStore, tokens SetupTokenRedeemer) *View {
	return &View{dir: dir, roles: roles, tokens: tokens}
}

// ListUsers returns every principal joined with its role, sorted by id,
// optionally narrowed by a go-bexpr filter over the row fields
// (id, email, name, role, self).
//
// Order of operations:
//  1. the caller must be admin (trusted predicate), else AccessDenied
//  2. enumerate the directory
//  3. if enumeration is denied or unavailable, degrade to the caller only
//     and make sure the caller has a baseline role
//  4. join with the role table, missing tags default to user
func (v *View) ListUsers(ctx context.Context, caller iam.Principal, filter string) (*Listing, error) {
	const op = "admin.ListUsers"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrPrincipalID, caller.ID),
	)
	defer span.End()

	if err := v.requireAdmin(ctx, op, caller.ID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	listing := &Listing{}
	users, err := v.dir.ListAllUsers(ctx)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindAccessDenied, apperr.KindRemoteUnavailable:
			listing.Degraded = true
			listing.Cause = err.Error()
			telemetry.AddEvent(span, "listing.degraded", attribute.String("cause", listing.Cause))
			log.Printf("WARNING: user directory unavailable, listing caller only: %v", err)

			if _, err := v.roles.EnsureRole(ctx, caller.ID, models.DefaultRole); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			users = []models.User{{ID: caller.ID, Email: caller.Email, Name: caller.Name}}
		default:
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	assignments, err := v.roles.ListRoleAssignments(ctx, caller.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rows, err := auth.FilterRows(filter, Join(users, assignments, caller.ID), rowAttrs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidationFailed, op, err)
	}
	listing.Rows = rows

	span.SetAttributes(
		attribute.Bool(telemetry.AttrAdminDegraded, listing.Degraded),
		attribute.Int(telemetry.AttrAdminRowCount, len(rows)),
	)
	return listing, nil
}

// Join pairs every user with its assignment, defaulting to the user role,
// and sorts the result by principal id.
func Join(users []models.User, assignments []roles.Assignment, callerID string) []Row {
	byID := make(map[string]models.RoleTag, len(assignments))
	for _, a := range assignments {
		byID[a.PrincipalID] = a.Role
	}

	rows := make([]Row, 0, len(users))
	for _, u := range users {
		role, ok := byID[u.ID]
		if !ok {
			role = models.DefaultRole
		}
		row := Row{
			PrincipalID: u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Role:        role,
			LastLoginAt: u.LastLoginAt,
			Self:        u.ID == callerID,
		}
		if !u.CreatedAt.IsZero() {
			created := u.CreatedAt
			row.CreatedAt = &created
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].PrincipalID < rows[j].PrincipalID })
	return rows
}

func rowAttrs(r Row) map[string]any {
	return map[string]any{
		"id":    r.PrincipalID,
		"email": r.Email,
		"name":  r.Name,
		"role":  string(r.Role),
		"self":  r.Self,
	}
}

// SetRole changes another principal's role.
func (v *View) SetRole(ctx context.Context, caller iam.Principal, principalID string, role models.RoleTag) error {
	const op = "admin.SetRole"
	if err := v.requireAdmin(ctx, op, caller.ID); err != nil {
		return err
	}
	if principalID == caller.ID {
		return apperr.ValidationFailed(op, "you cannot change your own role")
	}
	if !role.Valid() {
		return apperr.ValidationFailed(op, fmt.Sprintf("unknown role %q", role))
	}
	if _, err := v.dir.GetUserByID(ctx, principalID); err != nil {
		return err
	}
	if err := v.roles.GrantRole(ctx, principalID, role, caller.ID); err != nil {
		return err
	}
	log.Printf("INFO: %s set role of %s to %s", caller.ID, principalID, role)
	return nil
}

// Block soft-blocks a principal by tagging it blocked. The principal is not deleted.
func (v *View) Block(ctx context.Context, caller iam.Principal, principalID string) error {
	return v.SetRole(ctx, caller, principalID, models.RoleBlocked)
}

// CreateUser creates a principal and grants it role (user when empty).
func (v *View) CreateUser(ctx context.Context, caller iam.Principal, email, password, name string, role models.RoleTag) (*Row, error) {
	const op = "admin.CreateUser"
	if err := v.requireAdmin(ctx, op, caller.ID); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.DefaultRole
	}
	if !role.Valid() {
		return nil, apperr.ValidationFailed(op, fmt.Sprintf("unknown role %q", role))
	}

	user, err := v.dir.CreateUser(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if err := v.roles.GrantRole(ctx, user.ID, role, caller.ID); err != nil {
		return nil, err
	}
	log.Printf("INFO: %s created principal %s (%s) with role %s", caller.ID, user.ID, user.Email, role)

	rows := Join([]models.User{*user}, []roles.Assignment{{PrincipalID: user.ID, Role: role}}, caller.ID)
	return &rows[0], nil
}

// RedeemSetupToken grants the caller admin in exchange for a valid,
// unused setup token issued for the caller's email.
func (v *View) RedeemSetupToken(ctx context.Context, caller iam.Principal, token string) error {
	const op = "admin.RedeemSetupToken"
	if v.tokens == nil {
		return apperr.AccessDenied(op, "setup tokens are disabled")
	}
	used, err := v.tokens.Redeem(ctx, token, caller.ID, caller.Email)
	if err != nil {
		return err
	}
	if err := v.roles.GrantRole(ctx, caller.ID, models.RoleAdmin, "setup-token:"+used.JTI); err != nil {
		// the request context may be what expired
		if rerr := v.tokens.Release(context.WithoutCancel(ctx), used.JTI); rerr != nil {
			log.Printf("ERROR: setup token %s stays consumed after failed grant: %v", used.JTI, rerr)
		}
		return err
	}
	log.Printf("INFO: %s became admin via setup token %s", caller.ID, used.JTI)
	return nil
}

func (v *View) requireAdmin(ctx context.Context, op, callerID string) error {
	ok, err := v.roles.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.AccessDenied(op, "admin role required")
	}
	return nil
}
