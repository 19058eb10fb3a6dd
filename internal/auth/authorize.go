package auth

import (
	"fmt"
	"log"

	"github.com/casbin/casbin/v2"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// Authorize asks the enforcer whether role may perform act on obj. It never
// mutates enforcer state. attrs feeds policy scopes; nil means no attributes.
func Authorize(enforcer casbin.IEnforcer, role models.RoleTag, obj, act string, attrs map[string]any) (bool, error) {
	if enforcer == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}
	if !ValidateAction(act) || act == HRWildcard || act == AllWildcard {
		return false, fmt.Errorf("unknown action %q", act)
	}
	if role == "" {
		log.Printf("WARNING: authorization denied: principal has no role (obj=%s, act=%s)", obj, act)
		return false, nil
	}
	if attrs == nil {
		attrs = map[string]any{}
	}

	allowed, err := enforcer.Enforce(RoleSubject(role), obj, act, attrs)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s %s: %w", role, obj, act, err)
	}
	return allowed, nil
}

// SelfAttrs builds the request attributes for a read about principalID.
func SelfAttrs(callerID, principalID string) map[string]any {
	return map[string]any{"self": callerID != "" && callerID == principalID}
}
