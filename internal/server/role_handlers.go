package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/middleware"
)

// RoleResponse is one principal's role as seen by the caller.
type RoleResponse struct {
	PrincipalID string         `json:"principal_id"`
	Role        models.RoleTag `json:"role"`
}

// HandleGetMyRole answers GET /api/roles/me.
func HandleGetMyRole(svc roleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		role, err := svc.GetRole(r.Context(), caller.ID, caller.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RoleResponse{PrincipalID: caller.ID, Role: role})
	}
}

// HandleIsAdmin answers GET /api/roles/me/admin through the trusted predicate.
func HandleIsAdmin(svc roleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		ok, err := svc.IsAdmin(r.Context(), caller.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"is_admin": ok})
	}
}

// HandleGetRole answers GET /api/roles/{principalID}.
func HandleGetRole(svc roleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		principalID := chi.URLParam(r, "principalID")
		role, err := svc.GetRole(r.Context(), caller.ID, principalID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RoleResponse{PrincipalID: principalID, Role: role})
	}
}

// HandleListRoleAssignments answers GET /api/admin/role-assignments.
func HandleListRoleAssignments(svc roleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		assignments, err := svc.ListRoleAssignments(r.Context(), caller.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
	}
}
