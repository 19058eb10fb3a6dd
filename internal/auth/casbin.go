package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

//go:embed model.conf
var casbinModelContent string

// RoleSubject is the Casbin subject for a role tag, e.g. "role:admin".
func RoleSubject(role models.RoleTag) string {
	return "role:" + string(role)
}

// Policy is a single permission line: role subject, object, action and an
// optional go-bexpr scope evaluated against the request attributes.
type Policy struct {
	Role   models.RoleTag
	Object string
	Action string
	Scope  string
}

// DefaultPolicies is the console permission matrix. Every role may read its
// own role assignment; role:blocked may do nothing else.
var DefaultPolicies = []Policy{
	{Role: models.RoleAdmin, Object: ObjectAll, Action: AllWildcard},
	{Role: models.RoleUser, Object: ObjectHR, Action: HRRead},
	{Role: models.RoleUser, Object: ObjectRoleAssignment, Action: RoleRead, Scope: ScopeSelf},
	{Role: models.RoleBlocked, Object: ObjectRoleAssignment, Action: RoleRead, Scope: ScopeSelf},
}

// InitEnforcer creates a Casbin enforcer from the embedded model and the
// default policy set. Policies are static, so no storage adapter is used.
func InitEnforcer() (casbin.IEnforcer, error) {
	return NewEnforcer(DefaultPolicies)
}

// NewEnforcer builds an enforcer holding exactly the given policies.
func NewEnforcer(policies []Policy) (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	// Scopes are go-bexpr expressions over the request attributes
	enforcer.AddFunction("bexprMatch", BexprMatchFunction())

	for _, p := range policies {
		if !ValidateAction(p.Action) {
			return nil, fmt.Errorf("policy for %s on %s: unknown action %q", p.Role, p.Object, p.Action)
		}
		if _, err := enforcer.AddPolicy(RoleSubject(p.Role), p.Object, p.Action, p.Scope); err != nil {
			return nil, fmt.Errorf("add policy %s %s %s: %w", p.Role, p.Object, p.Action, err)
		}
	}

	return enforcer, nil
}
