package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/casbin/casbin/v2"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
)

// Authorizer enforces Casbin policies for HTTP routes against the role the
// authentication middleware resolved.
type Authorizer struct {
	enforcer casbin.IEnforcer
}

// NewAuthorizer constructs the route authorizer.
func NewAuthorizer(enforcer casbin.IEnforcer) (*Authorizer, error) {
	if enforcer == nil {
		return nil, errors.New("authz middleware requires casbin enforcer")
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Require allows the request only if the caller's role may perform act on obj.
func (a *Authorizer) Require(obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.allow(w, r, obj, act) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// HR authorizes HR record routes: safe methods need hr:read, everything
// else hr:write.
func (a *Authorizer) HR(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.allow(w, r, auth.ObjectHR, classifyHRRequest(r)) {
			next.ServeHTTP(w, r)
		}
	})
}

func (a *Authorizer) allow(w http.ResponseWriter, r *http.Request, obj, act string) bool {
	principal, ok := auth.GetUserFromContext(r.Context())
	if !ok || principal.PrincipalID == "" {
		unauthenticated(w)
		return false
	}

	allowed, err := auth.Authorize(a.enforcer, principal.Role, obj, act, nil)
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.KindRemoteUnavailable, "authz", err))
		return false
	}
	if !allowed {
		log.Printf("INFO: authorization denied: principal %s (role=%s) for %s on %s", principal.PrincipalID, principal.Role, act, obj)
		WriteError(w, apperr.AccessDenied("authz", "requires "+act))
		return false
	}
	return true
}

func classifyHRRequest(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return auth.HRRead
	default:
		return auth.HRWrite
	}
}
