package server

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/middleware"
	"github.com/terraconstructs/hrconsole/internal/services/validation"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// RouterOptions controls the construction of the console HTTP router.
// Services left nil are not mounted.
type RouterOptions struct {
	Auth      authService
	Roles     roleService
	Admin     adminService
	HR        hrService
	Validator validation.Validator

	// Authorizer enforces Casbin route policies; required when HR or Admin is set.
	Authorizer *middleware.Authorizer
	// LoginLimiter throttles POST /auth/login and /auth/signup per client.
	LoginLimiter *middleware.RateLimiter
	Metrics      *telemetry.ServerMetrics

	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	// Console mounts the browser shell routes behind the route guard.
	Console     bool
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions returns the development CORS policy for origins.
func DefaultCORSOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy and
// the console handlers mounted.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.HTTPMetrics(opts.Metrics))

	corsCfg := DefaultCORSOptions(nil)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if opts.Auth != nil {
		r.Use(middleware.MultiAuthMiddleware(opts.Auth))
		mountAuth(r, opts)
	} else {
		log.Println("WARNING: Skipping /auth and /api routes - auth service not available")
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.Console {
		mountConsole(r)
	}
	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}
	return r
}

func mountAuth(r chi.Router, opts RouterOptions) {
	limited := func(h http.HandlerFunc) http.Handler {
		if opts.LoginLimiter == nil {
			return h
		}
		return opts.LoginLimiter.Middleware(h)
	}

	r.Method(http.MethodPost, "/auth/signup", limited(HandleSignUp(opts.Auth, opts.Validator)))
	r.Method(http.MethodPost, "/auth/login", limited(HandleLogin(opts.Auth, opts.Validator)))
	r.Post("/auth/logout", HandleLogout(opts.Auth))

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/session", HandleGetSession(opts.Auth))
		r.Group(func(r chi.Router) {
			mountAPI(r, opts)
		})
	})
}

func mountAPI(r chi.Router, opts RouterOptions) {
	r.Use(middleware.RequireAuthentication)

	if opts.Roles != nil {
		r.Get("/roles/me", HandleGetMyRole(opts.Roles))
		r.Get("/roles/me/admin", HandleIsAdmin(opts.Roles))
		r.Get("/roles/{principalID}", HandleGetRole(opts.Roles))
	}

	if opts.Admin != nil && opts.Authorizer != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", HandleListUsers(opts.Admin))
			r.With(opts.Authorizer.Require(auth.ObjectUser, auth.UserCreate)).
				Post("/users", HandleCreateUser(opts.Admin, opts.Validator))
			r.Group(func(r chi.Router) {
				r.Use(opts.Authorizer.Require(auth.ObjectRoleAssignment, auth.RoleWrite))
				r.Put("/users/{id}/role", HandleSetRole(opts.Admin, opts.Validator))
				r.Post("/users/{id}/block", HandleBlock(opts.Admin))
			})
			r.Post("/setup-token", HandleRedeemSetupToken(opts.Admin, opts.Validator))
			if opts.Roles != nil {
				r.With(opts.Authorizer.Require(auth.ObjectRoleAssignment, auth.RoleList)).
					Get("/role-assignments", HandleListRoleAssignments(opts.Roles))
			}
		})
	}

	if opts.HR != nil && opts.Authorizer != nil {
		h := &hrHandlers{svc: opts.HR, v: opts.Validator}
		r.Group(func(r chi.Router) {
			r.Use(opts.Authorizer.HR)
			h.Mount(r)
		})
	}
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext for local development.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}
