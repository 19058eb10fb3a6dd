package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/middleware"
	"github.com/terraconstructs/hrconsole/internal/services/validation"
)

type createUserRequest struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Role     string `mapstructure:"role"`
}

type roleUpdateRequest struct {
	Role string `mapstructure:"role"`
}

type setupTokenRequest struct {
	Token string `mapstructure:"token"`
}

// HandleListUsers answers GET /api/admin/users. A degraded listing is still
// a 200; the body says so.
func HandleListUsers(svc adminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		listing, err := svc.ListUsers(r.Context(), caller, r.URL.Query().Get("filter"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}
}

// HandleCreateUser answers POST /api/admin/users.
func HandleCreateUser(svc adminService, v validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := v.Decode(validation.SchemaAdminCreateUser, r.Body, &req); err != nil {
			writeError(w, err)
			return
		}
		caller, _ := middleware.PrincipalFromContext(r.Context())
		row, err := svc.CreateUser(r.Context(), caller, req.Email, req.Password, req.Name, models.RoleTag(req.Role))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	}
}

// HandleSetRole answers PUT /api/admin/users/{id}/role.
func HandleSetRole(svc adminService, v validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleUpdateRequest
		if err := v.Decode(validation.SchemaRoleUpdate, r.Body, &req); err != nil {
			writeError(w, err)
			return
		}
		caller, _ := middleware.PrincipalFromContext(r.Context())
		if err := svc.SetRole(r.Context(), caller, chi.URLParam(r, "id"), models.RoleTag(req.Role)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleBlock answers POST /api/admin/users/{id}/block.
func HandleBlock(svc adminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.PrincipalFromContext(r.Context())
		if err := svc.Block(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRedeemSetupToken answers POST /api/admin/setup-token. Any signed-in
// principal may call it; the token itself is the authorization.
func HandleRedeemSetupToken(svc adminService, v validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setupTokenRequest
		if err := v.Decode(validation.SchemaSetupToken, r.Body, &req); err != nil {
			writeError(w, err)
			return
		}
		caller, _ := middleware.PrincipalFromContext(r.Context())
		if err := svc.RedeemSetupToken(r.Context(), caller, req.Token); err != nil {
			logf(r, "WARNING", "setup token rejected for %s: %v", caller.ID, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RoleResponse{PrincipalID: caller.ID, Role: models.RoleAdmin})
	}
}
